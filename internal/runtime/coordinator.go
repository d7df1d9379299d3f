package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/fedstore/internal/runtime/audit"
	"github.com/drblury/fedstore/internal/runtime/config"
	errspkg "github.com/drblury/fedstore/internal/runtime/errors"
	loggingpkg "github.com/drblury/fedstore/internal/runtime/logging"
	"github.com/drblury/fedstore/internal/runtime/store"
	"github.com/drblury/fedstore/internal/runtime/transport"
)

// AuditSource is the audit source of records emitted by the coordinator itself.
const AuditSource = "FedStore.Coordinator"

// EventStoreRegistered is logged once per effective store registration.
const EventStoreRegistered = "StoreRegistered"

// AuditPublisherIdentityPrefix prefixes the identity of the audit logger
// that forwards records to the configured audit transport.
const AuditPublisherIdentityPrefix = "AUDIT_PUBLISHER_"

const tracerName = "github.com/drblury/fedstore"

// Dependencies are the collaborators injected into New. Every field is optional.
type Dependencies struct {
	// AuditLogger is the initial head of the audit chain. In debug mode a
	// console logger is installed when it is nil.
	AuditLogger *audit.Logger

	// Logger receives operational messages such as reducer replacement warnings.
	Logger loggingpkg.ServiceLogger

	// Registerer and Gatherer back the dispatch metrics and the inspector's
	// /metrics endpoint. They default to the Prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	// Tracer is used by the tracer middleware when tracing is enabled.
	Tracer trace.Tracer

	// Middlewares replaces DefaultMiddlewares when non-nil.
	Middlewares []MiddlewareRegistration

	// Hooks are merged into the dispatch_hooks middleware.
	Hooks DispatchHooks

	// PublisherFactory builds the audit publisher when an audit transport is
	// configured. It defaults to transport.DefaultFactory.
	PublisherFactory transport.Factory
}

// Coordinator is the process-wide registry of module stores. It routes
// actions between modules, fans out state changes to subscribers and audits
// dispatches through a chain of audit loggers.
//
// Dispatch, auditing and notification run synchronously on the caller's
// goroutine. Internal maps are guarded, but no lock is held while reducers,
// middlewares, sinks or listeners run, so listeners may dispatch again.
type Coordinator struct {
	conf        *config.Config
	log         loggingpkg.ServiceLogger
	tracer      trace.Tracer
	metrics     *DispatchMetrics
	gatherer    prometheus.Gatherer
	stats       *dispatchStats
	resources   *resourceTracker
	hooks       DispatchHooks
	middlewares []MiddlewareRegistration

	mu            sync.RWMutex
	entries       map[string]*entry
	order         []string
	globalActions map[string][]string
	built         map[*store.Store]struct{}
	selectors     map[string]map[string]Selector
	auditHead     *audit.Logger
	publisher     message.Publisher
	closeOnce     sync.Once
	closeErr      error

	subs *subscriptionRegistry
}

// New builds a coordinator from cfg. Zero config values are defaulted on a
// copy; cfg itself is not modified.
func New(cfg *config.Config, deps Dependencies) (*Coordinator, error) {
	if cfg == nil {
		return nil, errspkg.ErrConfigRequired
	}
	conf := *cfg
	conf.WithDefaults()
	if err := conf.Validate(); err != nil {
		return nil, errspkg.NewConfigValidationError(err)
	}

	log := deps.Logger
	if log == nil {
		log = loggingpkg.NewSlogServiceLogger(loggingpkg.NewSlogLogger(conf.LogLevel, conf.LogFormat, os.Stderr))
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	middlewares := deps.Middlewares
	if middlewares == nil {
		middlewares = DefaultMiddlewares()
	}
	head := deps.AuditLogger
	if head == nil && conf.DebugMode {
		head = audit.NewConsoleLogger(nil)
	}

	c := &Coordinator{
		conf:          &conf,
		log:           log.With(loggingpkg.LogFields{"component": "fedstore"}),
		tracer:        tracer,
		stats:         newDispatchStats(),
		resources:     newResourceTracker(),
		hooks:         deps.Hooks,
		middlewares:   middlewares,
		entries:       make(map[string]*entry),
		globalActions: make(map[string][]string),
		built:         make(map[*store.Store]struct{}),
		selectors:     make(map[string]map[string]Selector),
		auditHead:     head,
		subs:          newSubscriptionRegistry(),
	}

	if conf.AuditTransport != "" {
		if err := c.attachAuditPublisher(deps.PublisherFactory); err != nil {
			return nil, err
		}
	}

	if conf.MetricsEnabled {
		c.metrics = NewDispatchMetrics(deps.Registerer, conf.MetricsNamespace)
		if err := c.metrics.Register(); err != nil {
			return nil, errors.Join(fmt.Errorf("register dispatch metrics: %w", err), c.Close())
		}
		c.gatherer = deps.Gatherer
		if c.gatherer == nil {
			if g, ok := deps.Registerer.(prometheus.Gatherer); ok {
				c.gatherer = g
			} else {
				c.gatherer = prometheus.DefaultGatherer
			}
		}
	}

	return c, nil
}

// Config returns a copy of the effective configuration.
func (c *Coordinator) Config() config.Config {
	return *c.conf
}

// PlatformName returns the module name reserved for the host application.
func (c *Coordinator) PlatformName() string {
	return c.conf.PlatformName
}

// SetLogger installs logger as the audit chain head, or appends it to the
// existing chain. Appending follows the chain's cycle rules.
func (c *Coordinator) SetLogger(logger *audit.Logger) {
	if logger == nil {
		return
	}
	c.mu.Lock()
	head := c.auditHead
	if head == nil {
		c.auditHead = logger
	}
	c.mu.Unlock()

	if head != nil {
		head.SetNextLogger(logger)
	}
}

// AuditLogger returns the head of the audit chain, or nil.
func (c *Coordinator) AuditLogger() *audit.Logger {
	return c.auditLogger()
}

func (c *Coordinator) auditLogger() *audit.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.auditHead
}

// Stats returns the per-store dispatch statistics keyed by module name.
func (c *Coordinator) Stats() map[string]StoreStats {
	return c.stats.snapshot()
}

func (c *Coordinator) attachAuditPublisher(factory transport.Factory) error {
	if factory == nil {
		factory = transport.DefaultFactory()
	}
	pub, err := factory.Build(context.Background(), c.conf, loggingpkg.NewWatermillAdapter(c.log))
	if err != nil {
		return fmt.Errorf("build %s audit transport: %w", c.conf.AuditTransport, err)
	}
	sink, err := audit.NewPublisherSink(pub, c.conf.AuditTopic)
	if err != nil {
		return errors.Join(err, pub.Close())
	}
	c.publisher = pub
	c.SetLogger(audit.New(AuditPublisherIdentityPrefix+strings.ToUpper(c.conf.AuditTransport), sink))
	c.log.Info("Audit transport attached", loggingpkg.LogFields{
		"transport": c.conf.AuditTransport,
		"topic":     c.conf.AuditTopic,
	})
	return nil
}

// AuditPublisher returns the publisher built for the configured audit
// transport, or nil when none is configured.
func (c *Coordinator) AuditPublisher() message.Publisher {
	return c.publisher
}

// Close releases the audit publisher. It is safe to call more than once.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() {
		if c.publisher != nil {
			c.closeErr = c.publisher.Close()
		}
	})
	return c.closeErr
}
