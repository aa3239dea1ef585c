package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/graphquill/graphquill/core/application/services"
	"github.com/graphquill/graphquill/core/domain/interfaces"
	"github.com/graphquill/graphquill/core/infrastructure/logging"
	"github.com/graphquill/graphquill/core/infrastructure/observability"
	httptransport "github.com/graphquill/graphquill/core/infrastructure/transport/http"
	"github.com/graphquill/graphquill/core/parser"
	"github.com/graphquill/graphquill/core/runtime/backend"
	"github.com/graphquill/graphquill/core/runtime/engine"
	"github.com/graphquill/graphquill/core/runtime/store"
)

// Runtime wires the definition store, backends, engine and HTTP transport
// into a runnable server.
type Runtime struct {
	cfg     Config
	manager *backend.Manager
	store   interfaces.DefinitionStore
	service *services.TemplateService
	server  *httptransport.Server
	version string
	log     interfaces.Logger
}

// NewRuntime creates a runtime from a parsed seed and configuration.
// Templates and compositions from the seed load into an in-memory store; a
// SQL store driver keeps its own definitions and the seed supplies backends
// only.
func NewRuntime(seed *parser.Seed, cfg Config, version string) (*Runtime, error) {
	log := logging.New("runtime")

	manager := backend.NewManager()
	if err := manager.InitializeAll(backendConfigs(seed)); err != nil {
		return nil, err
	}

	execBackend, err := pickExecutionBackend(manager, seed, cfg.Backend)
	if err != nil {
		manager.CloseAll()
		return nil, err
	}

	defStore, err := buildStore(cfg)
	if err != nil {
		manager.CloseAll()
		return nil, err
	}

	exec := engine.New(defStore, execBackend)
	svc := services.NewTemplateService(defStore, exec, manager)

	if cfg.StoreDriver == "memory" {
		if err := svc.LoadSeed(context.Background(), seed); err != nil {
			manager.CloseAll()
			defStore.Close()
			return nil, err
		}
	}

	log.Infof("Runtime initialized (store: %s, backends: %d)", cfg.StoreDriver, len(seed.Backends))

	return &Runtime{
		cfg:     cfg,
		manager: manager,
		store:   defStore,
		service: svc,
		version: version,
		log:     log,
	}, nil
}

// Service returns the template service, mainly for tests and embedding.
func (r *Runtime) Service() *services.TemplateService {
	return r.service
}

// Start starts the server and blocks until SIGTERM/SIGINT
func (r *Runtime) Start() error {
	if err := r.StartAsync(); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return r.Stop()
}

// StartAsync starts the server without blocking
func (r *Runtime) StartAsync() error {
	if r.cfg.OTelEnabled {
		if err := observability.Init(); err != nil {
			r.log.Warnf("OpenTelemetry initialization failed: %v", err)
		}
	}

	r.server = httptransport.NewServer(r.cfg.Port, r.cfg.OTelEnabled)
	httptransport.RegisterRoutes(r.server.Router(), r.service, r.cfg.Port)

	r.log.Infof("Starting graphquill %s", r.version)
	return r.server.StartAsync()
}

// Stop shuts down the HTTP server, backends and store
func (r *Runtime) Stop() error {
	r.log.Infof("Shutting down runtime")

	var firstErr error
	if r.server != nil {
		if err := r.server.Stop(); err != nil {
			firstErr = err
		}
	}
	if err := r.manager.CloseAll(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := r.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	if r.cfg.OTelEnabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := observability.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func backendConfigs(seed *parser.Seed) []backend.Config {
	names := make([]string, 0, len(seed.Backends))
	for name := range seed.Backends {
		names = append(names, name)
	}
	sort.Strings(names)

	configs := make([]backend.Config, 0, len(names))
	for _, name := range names {
		b := seed.Backends[name]
		configs = append(configs, backend.Config{
			Name: name,
			Kind: backend.Kind(b.Kind),
			DSN:  b.DSN,
		})
	}
	return configs
}

func pickExecutionBackend(manager *backend.Manager, seed *parser.Seed, preferred string) (interfaces.Backend, error) {
	if preferred != "" {
		b, ok := manager.Get(preferred)
		if !ok {
			return nil, fmt.Errorf("backend '%s' is not defined in the seed file", preferred)
		}
		return b, nil
	}

	names := make([]string, 0, len(seed.Backends))
	for name := range seed.Backends {
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("seed file defines no backends")
	}
	sort.Strings(names)

	b, _ := manager.Get(names[0])
	return b, nil
}

func buildStore(cfg Config) (interfaces.DefinitionStore, error) {
	var defStore interfaces.DefinitionStore

	switch cfg.StoreDriver {
	case "", "memory":
		defStore = store.NewMemoryStore()
	case "postgres", "mysql":
		sqlStore, err := store.OpenSQL(cfg.StoreDriver, cfg.StoreDSN)
		if err != nil {
			return nil, err
		}
		defStore = sqlStore
	default:
		return nil, fmt.Errorf("unsupported store driver '%s'", cfg.StoreDriver)
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			defStore.Close()
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		defStore = store.NewCachedStore(defStore, redis.NewClient(opts), cfg.CacheTTL)
	}

	return defStore, nil
}
