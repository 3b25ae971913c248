package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/taqueria/services/storefront/internal/catalog"
	"github.com/appetiteclub/taqueria/services/storefront/internal/order"
)

const (
	DefaultTimeout = 5 * time.Second

	TimeoutResult = "Operación completada con timeout de seguridad"
)

// ToolHandler runs a tool and returns the sentence handed back to the voice agent.
type ToolHandler func(ctx context.Context, params Params) string

// Param declares one body parameter of a tool.
type Param struct {
	Name        string
	Description string
	Schema      map[string]interface{}
	Required    bool
}

// ToolDefinition defines a tool with its aliases and handler
type ToolDefinition struct {
	Name        string
	Aliases     []string
	Description string
	Params      []Param
	Handler     ToolHandler
}

// Catalog is the catalog lookup the tools rely on.
type Catalog interface {
	ByID(id string) (catalog.Item, bool)
	Search(name string) (catalog.Item, bool)
	Resolve(ref string) (catalog.Item, bool)
}

// Orders is the part of the order store the tools drive.
type Orders interface {
	Current() order.Order
	Reconcile(ctx context.Context, desired []order.LineItem, fresh bool) (order.Order, error)
}

type Deps struct {
	Catalog   Catalog
	Orders    Orders
	Publisher events.Publisher
}

// ToolRegistry holds the tools the voice agent can call. Invocations are
// serialized in arrival order: a tool body never runs while another one is in
// progress, and calls queued behind a slow tool run in the order they came in.
type ToolRegistry struct {
	tools   map[string]*ToolDefinition
	names   []string
	catalog Catalog
	orders  Orders
	pub     events.Publisher
	timeout time.Duration
	logger  apt.Logger
	now     func() time.Time
	turn    *turnstile
}

func NewToolRegistry(deps Deps, timeout time.Duration, logger apt.Logger) *ToolRegistry {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	r := &ToolRegistry{
		tools:   make(map[string]*ToolDefinition),
		catalog: deps.Catalog,
		orders:  deps.Orders,
		pub:     deps.Publisher,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
		turn:    newTurnstile(),
	}
	r.registerAllTools()
	return r
}

func (r *ToolRegistry) registerAllTools() {
	r.register(&ToolDefinition{
		Name:        "updateOrder",
		Description: "Actualiza los detalles del pedido. Se usa cada vez que se agregan o eliminan artículos o cuando se finaliza el pedido. Llama a esta herramienta cada vez que el usuario actualice su pedido.",
		Params: []Param{{
			Name:        "orderDetailsData",
			Description: "Lista completa de productos del pedido, incluyendo los que ya se habían agregado.",
			Schema:      orderDetailsSchema(),
			Required:    true,
		}},
		Handler: r.updateOrder,
	})

	r.register(&ToolDefinition{
		Name:        "highlightProduct",
		Description: "Resalta un producto en el menú visual sin agregarlo al pedido. Útil para señalar opciones disponibles al usuario.",
		Params: []Param{{
			Name:        "productId",
			Description: "El ID del producto que se debe resaltar en el menú.",
			Schema:      map[string]interface{}{"type": "string"},
			Required:    true,
		}},
		Handler: r.highlightProduct,
	})

	r.register(&ToolDefinition{
		Name:        "processPayment",
		Description: "Inicia el registro del pedido actual y abre el formulario de datos de contacto.",
		Handler:     r.processPayment,
	})

	r.register(&ToolDefinition{
		Name:        "paymentInput",
		Aliases:     []string{"captureContactField"},
		Description: "Registra un dato de contacto dictado por el usuario durante el pago.",
		Params: []Param{
			{
				Name:        "field",
				Description: "Campo a llenar: name, email o phone.",
				Schema:      map[string]interface{}{"type": "string", "enum": []string{"name", "email", "phone"}},
				Required:    true,
			},
			{
				Name:        "value",
				Description: "Valor dictado por el usuario para el campo.",
				Schema:      map[string]interface{}{"type": "string"},
				Required:    true,
			},
		},
		Handler: r.paymentInput,
	})

	r.register(&ToolDefinition{
		Name:        "completePayment",
		Description: "Finaliza el registro del pedido con los datos de contacto ya capturados.",
		Handler:     r.completePayment,
	})
}

func (r *ToolRegistry) register(def *ToolDefinition) {
	r.tools[def.Name] = def
	r.names = append(r.names, def.Name)
	for _, alias := range def.Aliases {
		r.tools[alias] = def
	}
}

// FindTool finds a tool by name or alias.
func (r *ToolRegistry) FindTool(name string) (*ToolDefinition, bool) {
	def, ok := r.tools[strings.TrimSpace(name)]
	return def, ok
}

// Definitions returns the registered tools in registration order, without aliases.
func (r *ToolRegistry) Definitions() []*ToolDefinition {
	defs := make([]*ToolDefinition, 0, len(r.names))
	for _, name := range r.names {
		defs = append(defs, r.tools[name])
	}
	return defs
}

// Invoke runs the named tool with the raw JSON arguments sent by the caller.
// It always returns a sentence: unknown tools, malformed arguments, panics and
// slow tools all resolve to a descriptive result.
//
// A tool that outlives the timeout keeps running to completion; its result
// is discarded.
func (r *ToolRegistry) Invoke(ctx context.Context, name string, raw []byte) string {
	def, ok := r.FindTool(name)
	if !ok {
		r.logger.Info("unknown tool requested", "tool", name)
		return fmt.Sprintf("Herramienta desconocida: %s. Herramientas disponibles: %s", name, strings.Join(r.names, ", "))
	}

	params := decodeParams(raw)
	log := r.logger.With("tool", def.Name)
	log.Debug("tool invoked", "params", len(params))

	ticket := r.turn.take()
	done := make(chan string, 1)
	go func() {
		r.turn.enter(ticket)
		defer r.turn.leave()

		defer func() {
			if rec := recover(); rec != nil {
				log.Error("tool panicked", "panic", rec)
				done <- fmt.Sprintf("Error inesperado al ejecutar %s.", def.Name)
			}
		}()

		done <- def.Handler(ctx, params)
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case result := <-done:
		log.Debug("tool completed", "result", result)
		return result
	case <-timer.C:
		log.Info("tool exceeded safety timeout", "timeout", r.timeout.String())
		return TimeoutResult
	case <-ctx.Done():
		log.Info("tool caller went away", "error", ctx.Err())
		return TimeoutResult
	}
}

// decodeParams turns the request body into a parameter map. A body that is
// not a JSON object is kept under "input"; a body that is not JSON at all
// yields nil.
func decodeParams(raw []byte) Params {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return Params{}
	}

	var v interface{}
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return nil
	}

	switch val := v.(type) {
	case map[string]interface{}:
		return Params(val)
	case nil:
		return Params{}
	default:
		return Params{"input": val}
	}
}

func (r *ToolRegistry) publish(ctx context.Context, topic string, payload interface{}) error {
	if r.pub == nil {
		return fmt.Errorf("no publisher for %s", topic)
	}

	msg, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("cannot marshal %s payload: %w", topic, err)
	}
	return r.pub.Publish(ctx, topic, msg)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
