package agent

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/taqueria/pkg/enums/category"
	"github.com/appetiteclub/taqueria/services/storefront/internal/catalog"
	"github.com/appetiteclub/taqueria/services/storefront/internal/order"
	"github.com/appetiteclub/taqueria/services/storefront/internal/tools"
	"github.com/shopspring/decimal"
)

const (
	DefaultModel       = "fixie-ai/ultravox-70B"
	DefaultVoice       = "806d5c1e-b5ae-46c8-8719-04f1bc67c0a3"
	DefaultTemperature = 0.4
	LanguageHint       = "es"

	Title    = "El Sabor Mexicano"
	Overview = "Este agente ha sido programado para facilitar pedidos en una taquería mexicana llamada 'El Sabor Mexicano'."
)

// Items lists the catalog.
type Items interface {
	All() []catalog.Item
}

// Declarer describes the client tools offered to the agent.
type Declarer interface {
	Declarations() []tools.SelectedTool
}

type Config struct {
	Title      string     `json:"title"`
	Overview   string     `json:"overview"`
	CallConfig CallConfig `json:"callConfig"`
}

// CallConfig is what the browser sends to the hosted voice agent to start a call.
type CallConfig struct {
	SystemPrompt  string               `json:"systemPrompt"`
	Model         string               `json:"model"`
	LanguageHint  string               `json:"languageHint"`
	Voice         string               `json:"voice"`
	Temperature   float64              `json:"temperature"`
	SelectedTools []tools.SelectedTool `json:"selectedTools"`
}

type Options struct {
	Model       string
	Voice       string
	Temperature float64
}

// OptionsFromConfig reads agent.model, agent.voice and agent.temperature.
func OptionsFromConfig(cfg *apt.Config, logger apt.Logger) Options {
	opts := Options{Model: DefaultModel, Voice: DefaultVoice, Temperature: DefaultTemperature}
	if cfg == nil {
		return opts
	}

	opts.Model = cfg.GetStringOrDef("agent.model", DefaultModel)
	opts.Voice = cfg.GetStringOrDef("agent.voice", DefaultVoice)

	if raw, ok := cfg.GetString("agent.temperature"); ok && raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil || t < 0 || t > 2 {
			if logger != nil {
				logger.Info("invalid agent.temperature, using default", "value", raw)
			}
		} else {
			opts.Temperature = t
		}
	}
	return opts
}

// Builder assembles the call configuration from the live catalog and tool registry.
type Builder struct {
	items Items
	tools Declarer
	opts  Options
	now   func() time.Time
}

func NewBuilder(items Items, declarer Declarer, opts Options) *Builder {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Voice == "" {
		opts.Voice = DefaultVoice
	}
	return &Builder{items: items, tools: declarer, opts: opts, now: time.Now}
}

func (b *Builder) Build() (Config, error) {
	prompt, err := b.SystemPrompt()
	if err != nil {
		return Config{}, err
	}

	var declared []tools.SelectedTool
	if b.tools != nil {
		declared = b.tools.Declarations()
	}

	return Config{
		Title:    Title,
		Overview: Overview,
		CallConfig: CallConfig{
			SystemPrompt:  prompt,
			Model:         b.opts.Model,
			LanguageHint:  LanguageHint,
			Voice:         b.opts.Voice,
			Temperature:   b.opts.Temperature,
			SelectedTools: declared,
		},
	}, nil
}

type promptSection struct {
	Title string
	Lines []promptLine
}

type promptLine struct {
	Name   string
	Price  string
	Spoken string
}

type promptData struct {
	Restaurant string
	Now        string
	Menu       []promptSection
	MaxQty     int
}

// SystemPrompt renders the agent instructions with the current menu.
func (b *Builder) SystemPrompt() (string, error) {
	data := promptData{
		Restaurant: Title,
		Now:        b.now().Format(time.RFC1123),
		MaxQty:     order.MaxQuantity,
	}

	bySection := make(map[string][]promptLine)
	if b.items != nil {
		for _, item := range b.items.All() {
			if !item.Available {
				continue
			}
			bySection[item.Category] = append(bySection[item.Category], promptLine{
				Name:   strings.ToUpper(item.Name),
				Price:  order.FormatAmount(item.Price),
				Spoken: SpokenPrice(item.Price),
			})
		}
	}
	for _, c := range category.All {
		if lines := bySection[c.Code()]; len(lines) > 0 {
			data.Menu = append(data.Menu, promptSection{Title: strings.ToUpper(c.Label), Lines: lines})
		}
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("cannot render system prompt: %w", err)
	}
	return buf.String(), nil
}

// SpokenPrice renders an amount the way the agent should say it:
// "15 pesos", "15 pesos con 50 centavos".
func SpokenPrice(d decimal.Decimal) string {
	d = d.Round(2)
	pesos := d.Floor()
	centavos := d.Sub(pesos).Mul(decimal.NewFromInt(100)).IntPart()

	if centavos == 0 {
		return fmt.Sprintf("%s pesos", pesos.String())
	}
	return fmt.Sprintf("%s pesos con %d centavos", pesos.String(), centavos)
}

var promptTemplate = template.Must(template.New("system").Parse(systemPrompt))

const systemPrompt = `# Configuración del Sistema de Pedidos - Taquería "{{.Restaurant}}"

## Rol del Agente
- Nombre: Asistente de "{{.Restaurant}}"
- Contexto: Sistema de toma de pedidos por voz con salida TTS e interfaz visual
- Hora actual: {{.Now}}
- Personalidad: Amable, paciente, usa lenguaje coloquial mexicano

## Menú (SOLO MENCIONA ESTOS PRODUCTOS, NO OFREZCAS PRODUCTOS QUE NO ESTÉN AQUÍ)
{{range .Menu}}
# {{.Title}}
{{range .Lines}}{{.Name}} ${{.Price}} ({{.Spoken}})
{{end}}{{end}}
## Flujo de Conversación
1. Saludo -> Toma de Pedido -> Llamada "updateOrder" -> Confirmación -> "processPayment" -> Datos de contacto con "paymentInput" -> "completePayment"
2. Menciona que también pueden usar el menú visual: "También puedes seleccionar directamente desde nuestro menú visual"

## Reglas para el uso de herramientas
- Llama a "updateOrder" cada vez que el usuario mencione, confirme, elimine o cambie la cantidad de un producto.
- SIEMPRE incluye TODOS los productos del pedido en "orderDetailsData", no solo el nuevo. Los productos que no envíes se eliminan del pedido.
- La cantidad máxima por producto es {{.MaxQty}}.
- Usa "highlightProduct" para señalar un producto en el menú sin agregarlo al pedido.
- Para los datos de contacto llama a "paymentInput" con el campo name, phone o email y el valor dictado.
- NO emitas texto mientras llamas a una herramienta.

## Pautas de Respuesta
- Usa números hablados ("quince pesos" en lugar de "$15.00").
- Mantén respuestas breves (1-2 oraciones).
- Sugiere bebidas o complementos cuando el pedido solo tenga tacos, y tacos o quesadillas cuando solo tenga bebidas.
- Fuera de tema: "Disculpa compa, estamos en la taquería {{.Restaurant}}."
- Recuerda que los pedidos pueden venir tanto de ti como de la interfaz visual.
`
