package app

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/middleware"
	"github.com/appetiteclub/taqueria/pkg"
	"github.com/appetiteclub/taqueria/services/storefront/internal/agent"
	"github.com/appetiteclub/taqueria/services/storefront/internal/bus"
	"github.com/appetiteclub/taqueria/services/storefront/internal/catalog"
	"github.com/appetiteclub/taqueria/services/storefront/internal/checkout"
	"github.com/appetiteclub/taqueria/services/storefront/internal/localstore"
	"github.com/appetiteclub/taqueria/services/storefront/internal/menu"
	"github.com/appetiteclub/taqueria/services/storefront/internal/mongo"
	"github.com/appetiteclub/taqueria/services/storefront/internal/order"
	"github.com/appetiteclub/taqueria/services/storefront/internal/stream"
	"github.com/appetiteclub/taqueria/services/storefront/internal/tools"
)

const (
	AppName    = "storefront"
	AppVersion = "0.1.0"

	CatalogStatic = "static"
	CatalogMongo  = "mongo"

	DefaultStoragePath = "data/storefront.json"
	DefaultNATSPrefix  = "storefront"
)

// App encapsulates the storefront service application
type App struct {
	config *apt.Config
	logger apt.Logger
	micro  *apt.Micro

	bus      *bus.Bus
	catalog  *catalog.Catalog
	store    *order.Store
	session  *checkout.Session
	board    *menu.Board
	registry *tools.ToolRegistry
}

// New creates a new storefront service application
func New(config *apt.Config, logger apt.Logger) (*App, error) {
	if config == nil {
		return nil, fmt.Errorf("%s: config is required", AppName)
	}
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &App{
		config: config,
		logger: logger,
	}, nil
}

// Initialize sets up all dependencies and components
func (a *App) Initialize(ctx context.Context) error {
	a.bus = bus.New(a.logger)

	var lifecycles []interface{}

	// Catalog
	switch source := a.config.GetStringOrDef("catalog.source", CatalogStatic); source {
	case CatalogStatic:
		a.catalog = catalog.New(catalog.Defaults())
	case CatalogMongo:
		catalogRepo := mongo.NewCatalogRepo(a.config, a.logger)
		seedHooks := apt.LifecycleHooks{
			OnStart: mongo.SeedingFunc(AppName, catalogRepo.GetDatabase, a.logger),
		}
		a.catalog = catalog.NewFromSource(catalogRepo, a.logger)
		lifecycles = append(lifecycles, catalogRepo, seedHooks)
	default:
		return fmt.Errorf("unknown catalog.source %q", source)
	}
	lifecycles = append(lifecycles, apt.LifecycleHooks{OnStart: a.catalog.Start})

	// Order store
	storagePath := a.config.GetStringOrDef("storage.path", DefaultStoragePath)
	a.store = order.NewStore(order.StoreDeps{
		Catalog:   a.catalog,
		Storage:   localstore.NewFileStore(storagePath, a.logger),
		Publisher: a.bus,
	}, a.logger)
	lifecycles = append(lifecycles, apt.LifecycleHooks{OnStart: a.store.Start})

	// Checkout and menu board follow the bus
	a.session = checkout.NewSession(checkout.SessionDeps{
		Bus:       a.bus,
		Publisher: a.bus,
		Orders:    a.store,
	}, a.logger)
	a.board = menu.NewBoard(a.bus, menu.DefaultHighlightDuration, a.logger)
	lifecycles = append(lifecycles, a.session, a.board)

	// Tool layer
	timeout, err := a.toolTimeout()
	if err != nil {
		return err
	}
	a.registry = tools.NewToolRegistry(tools.Deps{
		Catalog:   a.catalog,
		Orders:    a.store,
		Publisher: a.bus,
	}, timeout, a.logger)

	// External broker
	bridgeLifecycles, err := a.initBridge()
	if err != nil {
		return err
	}
	lifecycles = append(lifecycles, bridgeLifecycles...)

	// HTTP handlers
	builder := agent.NewBuilder(a.catalog, a.registry, agent.OptionsFromConfig(a.config, a.logger))
	orderHandler := order.NewHandler(order.HandlerDeps{Store: a.store}, a.config, a.logger)
	checkoutHandler := checkout.NewHandler(checkout.HandlerDeps{Session: a.session, Publisher: a.bus}, a.logger)
	toolHandler := tools.NewHandler(a.registry, a.logger)
	menuHandler := menu.NewHandler(a.catalog, a.board, a.logger)
	sseHandler := stream.NewSSEHandler(a.bus, a.logger)
	agentHandler := agent.NewHandler(builder, a.logger)

	// Setup middleware
	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger: a.logger,
	})

	// Build micro service
	options := []apt.Option{
		apt.WithConfig(a.config),
		apt.WithLogger(a.logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", orderHandler, checkoutHandler, toolHandler, menuHandler, sseHandler, agentHandler),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(AppName),
	}

	a.micro = apt.NewMicro(options...)
	return nil
}

func (a *App) toolTimeout() (time.Duration, error) {
	raw := a.config.GetStringOrDef("tools.timeout", "")
	if raw == "" {
		return tools.DefaultTimeout, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid tools.timeout %q", raw)
	}
	return d, nil
}

// initBridge connects the bus to NATS when nats.url is set. Bus events go out
// on <prefix>.events.<topic>, signals come in on <prefix>.signals.<topic>.
func (a *App) initBridge() ([]interface{}, error) {
	natsURL, _ := a.config.GetString("nats.url")
	if natsURL == "" {
		a.logger.Info("nats.url not set, bus bridge disabled")
		return nil, nil
	}
	prefix := a.config.GetStringOrDef("nats.prefix", DefaultNATSPrefix)

	publisher, err := pkg.NewNATSPublisher(natsURL, pkg.Subject(prefix, "events"))
	if err != nil {
		return nil, err
	}

	subscriber, err := pkg.NewNATSSubscriber(natsURL, pkg.Subject(prefix, "signals"), a.logger)
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}

	var out events.Publisher = publisher
	var in events.Subscriber = subscriber
	bridge := bus.NewBridge(a.bus, out, in, a.logger)

	publisherLifecycle := apt.LifecycleHooks{
		OnStop: func(context.Context) error { return publisher.Close() },
	}
	subscriberLifecycle := apt.LifecycleHooks{
		OnStop: func(context.Context) error { return subscriber.Close() },
	}
	return []interface{}{bridge, subscriberLifecycle, publisherLifecycle}, nil
}

// Run starts the application
func (a *App) Run(ctx context.Context) error {
	if a.micro == nil {
		return fmt.Errorf("%s: not initialized", AppName)
	}
	a.logger.Infof("Starting %s(%s)", AppName, AppVersion)
	if err := a.micro.Run(ctx); err != nil {
		return err
	}
	a.logger.Infof("%s(%s) stopped", AppName, AppVersion)
	return nil
}
