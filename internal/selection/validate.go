package selection

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidInput is matched by every validation failure raised at the mutation boundary.
var ErrInvalidInput = errors.New("invalid input")

// InputError describes a rejected user-supplied value.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return e.Field + " " + e.Message
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// ParseAmount converts raw form input into an optional amount. Blank input means
// "unset" and yields nil.
func ParseAmount(field, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &InputError{Field: field, Message: "debe ser numérico"}
	}
	if err := checkAmount(field, &value); err != nil {
		return nil, err
	}
	return &value, nil
}

func checkAmount(field string, v *float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return &InputError{Field: field, Message: "debe ser numérico"}
	}
	if *v < 0 {
		return &InputError{Field: field, Message: "debe ser mayor o igual a 0"}
	}
	return nil
}

// positiveOrNil treats 0 as "not set" for fields that are only meaningful when > 0.
func positiveOrNil(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return cloneAmount(v)
}

// Validate checks the numeric fields of a state built outside the reducer, such
// as one decoded from an imported file.
func Validate(s State) error {
	for key, v := range s.PriceOverrides {
		if err := checkAmount(key, &v); err != nil {
			return err
		}
	}
	for _, ci := range s.CustomIntegrations {
		if err := checkAmount("hours", ci.Hours); err != nil {
			return err
		}
		if err := checkAmount("rate", ci.Rate); err != nil {
			return err
		}
		if err := checkAmount("priceOverride", ci.PriceOverride); err != nil {
			return err
		}
	}
	return nil
}
