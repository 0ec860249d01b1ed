package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Simplici0/heynow-quoter/internal/catalog"
	"github.com/Simplici0/heynow-quoter/internal/pricing"
	"github.com/Simplici0/heynow-quoter/internal/selection"
)

func TestMoney(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "US$ 0"},
		{98, "US$ 98"},
		{1320, "US$ 1.320"},
		{1234567.5, "US$ 1.234.568"},
		{-1500, "-US$ 1.500"},
	}
	for _, tc := range cases {
		if got := Money(tc.in); got != tc.want {
			t.Fatalf("Money(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMoneyPrecise(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0.1, "US$ 0,10"},
		{0.125, "US$ 0,13"},
		{43.478260869, "US$ 43,48"},
		{2500, "US$ 2.500,00"},
	}
	for _, tc := range cases {
		if got := MoneyPrecise(tc.in); got != tc.want {
			t.Fatalf("MoneyPrecise(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func buildState(t *testing.T, c *catalog.Catalog, updates ...selection.Update) selection.State {
	t.Helper()
	s := selection.New(c)
	for _, u := range updates {
		next, err := selection.Apply(s, u)
		if err != nil {
			t.Fatalf("apply %T: %v", u, err)
		}
		s = next
	}
	return s
}

func TestNewSheetAppliesMarginAndSkipsDisabled(t *testing.T) {
	c := catalog.Default()
	s := buildState(t, c,
		selection.SetImplementation{ID: "bot1"},
		selection.ToggleAddon{ID: "img-fixed", Selected: true},
		selection.SetComponentDisabled{Type: selection.TypeAddon, ID: "img-fixed", Disabled: true},
		selection.SetBIPlan{ID: "heybi-2500"},
		selection.SetPartner{ID: "partner"},
	)

	sheet := NewSheet(c, pricing.Compute(c, s), time.Now())

	if len(sheet.SetupLines) != 1 || sheet.SetupLines[0].Value != 1320 {
		t.Fatalf("unexpected setup lines: %+v", sheet.SetupLines)
	}
	if len(sheet.MonthlyLines) != 1 || sheet.MonthlyLines[0].Value != 105.84 {
		t.Fatalf("unexpected monthly lines: %+v", sheet.MonthlyLines)
	}
	if sheet.AdditionalHour != 45 {
		t.Fatalf("additional hour = %v", sheet.AdditionalHour)
	}
}

func TestTextRendersSections(t *testing.T) {
	c := catalog.Default()
	s := buildState(t, c,
		selection.SetImplementation{ID: "bot1"},
		selection.ToggleExtra{ID: "outbound", Selected: true},
		selection.SetPartner{ID: "partner"},
	)

	var buf bytes.Buffer
	if err := Text(&buf, c, s, time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Text: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Cotizacion HeyNow",
		"02/05/2025",
		"US$ 3.630",
		"Bot 1ra gen - 1 canal",
		"Sin componentes en esta sección",
		"Sesión adicional",
		"TARIFAS POR HORA",
		"Promedio ponderado",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
