package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrMissingAPIKey   = errors.New("API Key de Google Gemini no configurada")
	ErrInvalidAPIKey   = errors.New("API Key inválida. Por favor verifica tu clave de Google Gemini")
	ErrQuotaExceeded   = errors.New("has excedido el límite de solicitudes. Por favor espera unos minutos antes de intentar nuevamente")
	ErrOverloaded      = errors.New("el modelo de Google AI está sobrecargado en este momento. Por favor intenta nuevamente en unos minutos")
	ErrEmptyResponse   = errors.New("la IA devolvió una respuesta vacía")
	ErrInvalidEstimate = errors.New("la IA no devolvió un número válido")
)

// isOverloaded reports whether err is a transient capacity failure worth retrying.
func isOverloaded(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusServiceUnavailable ||
			strings.Contains(strings.ToLower(apiErr.Message), "overloaded")
	}
	return false
}

// classify maps collaborator failures onto the package sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrMissingAPIKey, ErrEmptyResponse, ErrInvalidEstimate} {
		if errors.Is(err, known) {
			return err
		}
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Reason + " " + apiErr.Message
		switch {
		case strings.Contains(msg, "API_KEY_INVALID"):
			return fmt.Errorf("%w: %v", ErrInvalidAPIKey, err)
		case apiErr.StatusCode == http.StatusTooManyRequests || strings.Contains(strings.ToLower(msg), "quota"):
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		case isOverloaded(err):
			return fmt.Errorf("%w: %v", ErrOverloaded, err)
		}
	}
	return fmt.Errorf("no se pudo generar la respuesta: %w", err)
}
