// Command quoter prices HeyNow quote files from the terminal.
//
// Usage:
//
//	quoter catalog
//	quoter quote --state cotizacion-heynow.json [--format text|json]
//	quoter rates --state cotizacion-heynow.json
//	quoter proposal --state cotizacion-heynow.json --client Acme
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/Simplici0/heynow-quoter/internal/ai"
	"github.com/Simplici0/heynow-quoter/internal/catalog"
	"github.com/Simplici0/heynow-quoter/internal/pricing"
	"github.com/Simplici0/heynow-quoter/internal/render"
	"github.com/Simplici0/heynow-quoter/internal/selection"
	"github.com/Simplici0/heynow-quoter/internal/snapshot"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "quoter",
		Usage:   "Price HeyNow conversational AI deployments",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "catalog",
				Usage:   "Path to a catalog file (YAML or JSON); the embedded catalog is used when empty",
				EnvVars: []string{"CATALOG_PATH"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			catalogCommand(),
			quoteCommand(),
			ratesCommand(),
			proposalCommand(),
			estimateCommand(),
		},
	}
}

func stateFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "state",
		Aliases:  []string{"s"},
		Usage:    "Path to an exported quote file (" + snapshot.FileName + ")",
		Required: true,
	}
}

func newLogger(c *cli.Context) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(c.String("log-level")))
	if err != nil {
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: c.App.ErrWriter}).Level(level).With().Timestamp().Logger()
}

func loadCatalog(c *cli.Context) (*catalog.Catalog, error) {
	path := c.String("catalog")
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

// loadQuote reads the catalog and the state file named by --state.
func loadQuote(c *cli.Context) (*catalog.Catalog, selection.State, error) {
	cat, err := loadCatalog(c)
	if err != nil {
		return nil, selection.State{}, err
	}
	data, err := os.ReadFile(c.String("state"))
	if err != nil {
		return nil, selection.State{}, fmt.Errorf("read state file: %w", err)
	}
	state, err := snapshot.Import(cat, data)
	if err != nil {
		return nil, selection.State{}, err
	}
	return cat, state, nil
}

// =============================================================================
// CATALOG COMMAND
// =============================================================================

func catalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Print the price catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format (text, json)",
			},
		},
		Action: func(c *cli.Context) error {
			cat, err := loadCatalog(c)
			if err != nil {
				return err
			}
			switch c.String("format") {
			case "json":
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(cat)
			case "text":
				return writeCatalog(c.App.Writer, cat)
			}
			return fmt.Errorf("unknown format %q", c.String("format"))
		},
	}
}

func writeCatalog(w io.Writer, cat *catalog.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Catalogo %s (%s)\n", cat.Version, cat.Currency)
	fmt.Fprintf(tw, "Tarifa sin IA\t%s/h\n", render.Money(cat.Rates.WithoutAI))
	fmt.Fprintf(tw, "Tarifa con IA\t%s/h\n", render.Money(cat.Rates.WithAI))

	components := func(title string, items []catalog.Component) {
		fmt.Fprintf(tw, "\n%s\n", strings.ToUpper(title))
		for _, item := range items {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", item.ID, item.Name, render.Money(item.SetupCost), render.Hours(item.LaborHours))
		}
	}
	components("Implementaciones", cat.Implementations)
	components("Extras de implementación", cat.ImplementationExtras)
	components("Add-ons", cat.Addons)

	fmt.Fprintf(tw, "\nINTEGRACIONES\n")
	for _, tier := range cat.Integrations {
		price := render.Hours(tier.BaseHours)
		if tier.FixedCost != nil {
			price = render.Money(*tier.FixedCost)
		}
		monthly := ""
		if tier.MonthlyCost > 0 {
			monthly = render.Money(tier.MonthlyCost) + "/mes"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", tier.ID, tier.Label, price, monthly)
	}

	fmt.Fprintf(tw, "\nPAQUETES DE SESIONES\n")
	for _, pkg := range cat.SessionPackages {
		fmt.Fprintf(tw, "  %s\t%s\t%s/mes\t%s/sesión\n", pkg.ID, pkg.Label, render.Money(pkg.MonthlyCost), render.MoneyPrecise(pkg.ExtraSessionCost))
	}

	fmt.Fprintf(tw, "\nPLANES BI\n")
	for _, plan := range cat.BIPlans {
		fmt.Fprintf(tw, "  %s\t%s\t%s/mes\t\n", plan.ID, plan.Label, render.Money(plan.MonthlyCost))
	}

	fmt.Fprintf(tw, "\nPARTNERS\n")
	for _, p := range cat.Partners {
		fmt.Fprintf(tw, "  %s\t%s\t\t\n", p.ID, p.Name)
	}

	return tw.Flush()
}

// =============================================================================
// QUOTE COMMAND
// =============================================================================

func quoteCommand() *cli.Command {
	return &cli.Command{
		Name:  "quote",
		Usage: "Price a saved quote file",
		Flags: []cli.Flag{
			stateFlag(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format (text, json)",
			},
		},
		Action: func(c *cli.Context) error {
			cat, state, err := loadQuote(c)
			if err != nil {
				return err
			}
			now := time.Now()
			switch c.String("format") {
			case "text":
				return render.Text(c.App.Writer, cat, state, now)
			case "json":
				data, err := snapshot.Export(cat, state, now)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(c.App.Writer, string(data))
				return err
			}
			return fmt.Errorf("unknown format %q", c.String("format"))
		},
	}
}

// =============================================================================
// RATES COMMAND
// =============================================================================

func ratesCommand() *cli.Command {
	return &cli.Command{
		Name:  "rates",
		Usage: "Show the effective hourly rate of every setup line",
		Flags: []cli.Flag{stateFlag()},
		Action: func(c *cli.Context) error {
			cat, state, err := loadQuote(c)
			if err != nil {
				return err
			}
			result := pricing.Compute(cat, state)
			return writeRates(c.App.Writer, pricing.AnalyzeRates(result.Breakdown))
		},
	}
}

func writeRates(w io.Writer, analysis pricing.RateAnalysis) error {
	if len(analysis.Entries) == 0 {
		_, err := fmt.Fprintln(w, "Sin líneas con horas")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Componente\tTarifa\tHoras\n")
	for _, entry := range analysis.Entries {
		fmt.Fprintf(tw, "%s\t%s/h\t%s\n", entry.Label, render.MoneyPrecise(entry.Rate), render.Hours(entry.Hours))
	}
	if analysis.Mixed {
		fmt.Fprintf(tw, "\nTarifas mixtas\t%s - %s\t\n", render.MoneyPrecise(analysis.Min), render.MoneyPrecise(analysis.Max))
		fmt.Fprintf(tw, "Promedio ponderado\t%s/h\t\n", render.MoneyPrecise(analysis.WeightedAverage))
	}
	return tw.Flush()
}

// =============================================================================
// AI COMMANDS
// =============================================================================

func geminiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "Google Gemini API key",
			EnvVars: []string{"GEMINI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "model",
			Value:   ai.DefaultModel,
			Usage:   "Gemini model",
			EnvVars: []string{"GEMINI_MODEL"},
		},
	}
}

func newProposer(c *cli.Context, cat *catalog.Catalog) *ai.Proposer {
	client := ai.NewGeminiClient(c.String("api-key"), c.String("model"))
	return ai.NewProposer(client, cat, newLogger(c))
}

func proposalCommand() *cli.Command {
	flags := append([]cli.Flag{
		stateFlag(),
		&cli.StringFlag{Name: "client", Usage: "Client name", Required: true},
		&cli.StringFlag{Name: "industry", Usage: "Client industry"},
		&cli.StringFlag{Name: "objective", Usage: "Business objective"},
		&cli.StringFlag{Name: "use-case", Usage: "Main use case"},
		&cli.StringFlag{Name: "agent-type", Value: "estatico", Usage: "Agent type (estatico, integracion, hibrido)"},
		&cli.StringFlag{Name: "knowledge-sources", Usage: "Knowledge sources"},
		&cli.StringFlag{Name: "integration-systems", Usage: "Systems to integrate"},
		&cli.StringFlag{Name: "data-required", Usage: "Data requested from the user"},
		&cli.StringFlag{Name: "volume", Usage: "Expected volume (bajo, medio, alto, muy-alto)"},
		&cli.StringFlag{Name: "pain-points", Usage: "Pain points"},
	}, geminiFlags()...)

	return &cli.Command{
		Name:  "proposal",
		Usage: "Generate the project scope text for a quote with Gemini",
		Flags: flags,
		Action: func(c *cli.Context) error {
			cat, state, err := loadQuote(c)
			if err != nil {
				return err
			}
			client := ai.ClientContext{
				ClientName:         c.String("client"),
				Industry:           c.String("industry"),
				Objective:          c.String("objective"),
				UseCase:            c.String("use-case"),
				AgentType:          c.String("agent-type"),
				KnowledgeSources:   c.String("knowledge-sources"),
				IntegrationSystems: c.String("integration-systems"),
				DataRequired:       c.String("data-required"),
				Volume:             c.String("volume"),
				PainPoints:         c.String("pain-points"),
			}

			text, err := newProposer(c, cat).GenerateProposal(context.Background(), client, state, pricing.Compute(cat, state))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.App.Writer, text)
			return err
		},
	}
}

func estimateCommand() *cli.Command {
	return &cli.Command{
		Name:  "estimate",
		Usage: "Estimate development hours for a custom integration with Gemini",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "What the integration does", Required: true},
		}, geminiFlags()...),
		Action: func(c *cli.Context) error {
			cat, err := loadCatalog(c)
			if err != nil {
				return err
			}
			hours, err := newProposer(c, cat).EstimateEffort(context.Background(), c.String("description"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.App.Writer, "%d\n", hours)
			return err
		},
	}
}
