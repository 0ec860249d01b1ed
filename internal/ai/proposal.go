package ai

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/Simplici0/heynow-quoter/internal/catalog"
	"github.com/Simplici0/heynow-quoter/internal/pricing"
	"github.com/Simplici0/heynow-quoter/internal/render"
	"github.com/Simplici0/heynow-quoter/internal/selection"
)

const (
	maxRetries     = 2
	defaultBackoff = time.Second
)

// ClientContext is what the sales team knows about the customer.
type ClientContext struct {
	ClientName         string `json:"clientName"`
	Industry           string `json:"industry"`
	Objective          string `json:"objective"`
	UseCase            string `json:"useCase"`
	AgentType          string `json:"agentType"`
	KnowledgeSources   string `json:"knowledgeSources"`
	IntegrationSystems string `json:"integrationSystems"`
	DataRequired       string `json:"dataRequired"`
	Volume             string `json:"volume"`
	PainPoints         string `json:"painPoints"`
}

// Proposer writes commercial text for a priced selection. It reads the state and
// result it is given and never changes them.
type Proposer struct {
	gen     Generator
	catalog *catalog.Catalog
	log     zerolog.Logger

	// Backoff is the first retry delay after an overload answer; it doubles per retry.
	Backoff time.Duration
}

func NewProposer(gen Generator, c *catalog.Catalog, log zerolog.Logger) *Proposer {
	return &Proposer{gen: gen, catalog: c, log: log, Backoff: defaultBackoff}
}

// GenerateProposal returns the "project scope" section for the quote.
func (p *Proposer) GenerateProposal(ctx context.Context, client ClientContext, s selection.State, result pricing.Result) (string, error) {
	return p.generate(ctx, "proposal", BuildProposalPrompt(p.catalog, client, s, result))
}

// EstimateEffort asks the model for the development hours a custom integration needs.
func (p *Proposer) EstimateEffort(ctx context.Context, description string) (int, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return 0, fmt.Errorf("%w: descripción vacía", selection.ErrInvalidInput)
	}

	text, err := p.generate(ctx, "estimate", BuildEffortPrompt(description))
	if err != nil {
		return 0, err
	}
	return ParseHours(text)
}

// generate calls the model, retrying only while it reports being overloaded.
func (p *Proposer) generate(ctx context.Context, kind, prompt string) (string, error) {
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	policy := retry.WithMaxRetries(maxRetries, retry.NewExponential(backoff))

	attempt := 0
	var text string
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		attempt++
		out, err := p.gen.Generate(ctx, prompt)
		if err != nil {
			if isOverloaded(err) {
				p.log.Warn().Err(err).Str("kind", kind).Int("attempt", attempt).Msg("model overloaded, retrying")
				return retry.RetryableError(err)
			}
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		err = classify(err)
		p.log.Error().Err(err).Str("kind", kind).Int("attempts", attempt).Msg("ai generation failed")
		return "", err
	}
	return text, nil
}

const maxEstimateHours = 1_000_000

// ParseHours reads the leading integer of a model answer such as "40" or "40 horas".
func ParseHours(text string) (int, error) {
	text = strings.TrimSpace(text)
	end := 0
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEstimate, text)
	}

	hours, err := strconv.Atoi(text[:end])
	if err != nil || hours > maxEstimateHours {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEstimate, text)
	}
	return hours, nil
}

var agentTypeLabels = map[string]string{
	"estatico":    "Base de Conocimiento Estática",
	"integracion": "Con Integraciones a Servicios",
	"hibrido":     "Híbrido (Base de Conocimiento + Integraciones)",
}

var volumeLabels = map[string]string{
	"bajo":     "Bajo (< 1.000 conv/mes)",
	"medio":    "Medio (1K - 10K conv/mes)",
	"alto":     "Alto (10K - 50K conv/mes)",
	"muy-alto": "Muy Alto (> 50K conv/mes)",
}

func labelOr(labels map[string]string, key string) string {
	if label, ok := labels[key]; ok {
		return label
	}
	return key
}

// BuildProposalPrompt assembles the scope-writing prompt from the customer
// context, the selection and its totals.
func BuildProposalPrompt(c *catalog.Catalog, client ClientContext, s selection.State, result pricing.Result) string {
	var b strings.Builder

	b.WriteString("Eres un consultor comercial experto en soluciones de Agentes IA conversacionales de HeyNow.\n\n")

	b.WriteString("**DATOS DEL CLIENTE:**\n")
	fmt.Fprintf(&b, "- Cliente: %s\n", client.ClientName)
	fmt.Fprintf(&b, "- Industria: %s\n", client.Industry)
	fmt.Fprintf(&b, "- Objetivo: %s\n", client.Objective)
	fmt.Fprintf(&b, "- Caso de Uso: %s\n", client.UseCase)
	fmt.Fprintf(&b, "- Tipo de Agente: %s\n", labelOr(agentTypeLabels, client.AgentType))
	optional(&b, "Fuentes de Conocimiento", client.KnowledgeSources)
	optional(&b, "Sistemas/Servicios a Integrar", client.IntegrationSystems)
	optional(&b, "Datos a Solicitar al Usuario", client.DataRequired)
	if client.Volume != "" {
		optional(&b, "Volumen Esperado", labelOr(volumeLabels, client.Volume))
	}
	optional(&b, "Puntos de Dolor", client.PainPoints)

	b.WriteString("\n**SOLUCIÓN TÉCNICA PROPUESTA:**\n")
	implementation := s.ImplementationID
	if impl, ok := c.Implementation(s.ImplementationID); ok {
		implementation = impl.Name
	}
	fmt.Fprintf(&b, "- Implementación Base: %s\n", implementation)
	writeComponents(&b, c, s)

	b.WriteString("\n**INVERSIÓN:**\n")
	fmt.Fprintf(&b, "- Setup (pago único): %s\n", render.Money(result.SetupWithMargin))
	fmt.Fprintf(&b, "- Mensual (recurrente): %s\n", render.Money(result.MonthlyWithMargin))
	fmt.Fprintf(&b, "- Horas totales estimadas: %s\n", render.Hours(result.TotalHours))

	b.WriteString(proposalInstructions)
	return b.String()
}

func optional(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, value)
}

func writeComponents(b *strings.Builder, c *catalog.Catalog, s selection.State) {
	var extras []string
	for _, extra := range c.ImplementationExtras {
		if s.SelectedExtraIDs.Has(extra.ID) {
			extras = append(extras, extra.Name)
		}
	}
	if len(extras) > 0 {
		fmt.Fprintf(b, "- Extras de Implementación: %s\n", strings.Join(extras, ", "))
	}

	var addons []string
	for _, addon := range c.Addons {
		if s.SelectedAddonIDs.Has(addon.ID) {
			addons = append(addons, addon.Name)
		}
	}
	if len(addons) > 0 {
		fmt.Fprintf(b, "- Add-ons: %s\n", strings.Join(addons, ", "))
	}

	if tier, ok := c.Integration(s.IntegrationTierID); ok && !c.IsNoneIntegration(tier.ID) {
		fmt.Fprintf(b, "- Integración de Catálogo: %s\n", tier.Label)
	}

	var custom []string
	for _, ci := range s.CustomIntegrations {
		if name := strings.TrimSpace(ci.Name); name != "" {
			custom = append(custom, name)
		}
	}
	if len(custom) > 0 {
		fmt.Fprintf(b, "- Integraciones Personalizadas: %s\n", strings.Join(custom, ", "))
	}

	if pkg, ok := c.SessionPackage(s.SessionPackageID); ok {
		fmt.Fprintf(b, "- Paquete de Sesiones: %s\n", pkg.Label)
	}
}

const proposalInstructions = `
**INSTRUCCIONES:**

Genera ÚNICAMENTE la sección de "Alcance del Proyecto" para un **Agente IA conversacional** de HeyNow.

1. **Breve introducción de la solución** (2-3 líneas): problema que resuelve, canal principal y tipo de agente.
2. **Detalle de casos de uso**. Para cada caso:
   - Si es estático, menciona siempre el entrenamiento de la base de conocimiento y sus fuentes (documentos, scraping web, FAQs).
   - Si tiene integraciones, indica qué datos se piden al usuario, con qué sistema se conecta, cómo (API REST, webhooks, base de datos) y qué información devuelve.
   - Si es híbrido, diferencia qué se resuelve con conocimiento estático y qué requiere integración.
3. **Flujos adicionales** solo si aplican: escalación a agente humano, modificación o cancelación, mensajes proactivos.

Estilo: técnico pero claro, centrado en procesos y flujos, con negritas para términos clave y listas numeradas para los pasos.
Ajusta la extensión a la información disponible del cliente.

No incluyas resumen ejecutivo, cronograma, desglose de inversión, próximos pasos ni supuestos.
Empieza directamente con el título del proyecto, sin introducciones.
`

// BuildEffortPrompt asks for a single integer number of hours.
func BuildEffortPrompt(description string) string {
	return fmt.Sprintf(`Actúa como un experto arquitecto de software y estimador de proyectos.
Estima las horas de desarrollo necesarias para la siguiente integración personalizada:
%q

Responde SOLAMENTE con un número entero que represente la cantidad de horas estimadas.
Si es muy complejo, da tu mejor estimado conservador.
No incluyas texto, solo el número.`, description)
}
