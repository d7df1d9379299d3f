package fedstore

import (
	runtimepkg "github.com/drblury/fedstore/internal/runtime"
	auditpkg "github.com/drblury/fedstore/internal/runtime/audit"
	ce "github.com/drblury/fedstore/internal/runtime/cloudevents"
	configpkg "github.com/drblury/fedstore/internal/runtime/config"
	errspkg "github.com/drblury/fedstore/internal/runtime/errors"
	idspkg "github.com/drblury/fedstore/internal/runtime/ids"
	jsoncodec "github.com/drblury/fedstore/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/fedstore/internal/runtime/logging"
	metadatapkg "github.com/drblury/fedstore/internal/runtime/metadata"
	storepkg "github.com/drblury/fedstore/internal/runtime/store"
	runtimetransport "github.com/drblury/fedstore/internal/runtime/transport"
	"github.com/drblury/fedstore/transport"
)

type (
	Config       = configpkg.Config
	Coordinator  = runtimepkg.Coordinator
	Dependencies = runtimepkg.Dependencies
	StoreOptions = runtimepkg.StoreOptions

	Action          = storepkg.Action
	Reducer         = storepkg.Reducer
	Container       = storepkg.Container
	ReducerReplacer = storepkg.ReducerReplacer
	Store           = storepkg.Store
	StoreOption     = storepkg.Option
	Dispatcher      = storepkg.Dispatcher
	Middleware      = storepkg.Middleware
	MiddlewareAPI   = storepkg.MiddlewareAPI

	Listener       = runtimepkg.Listener
	GlobalListener = runtimepkg.GlobalListener
	Unsubscribe    = runtimepkg.Unsubscribe
	Selector       = runtimepkg.Selector

	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration
	RecoveredPanicError    = runtimepkg.RecoveredPanicError

	// Dispatch lifecycle hooks
	DispatchContext = runtimepkg.DispatchContext
	DispatchHooks   = runtimepkg.DispatchHooks

	// Metrics and statistics
	DispatchMetrics = runtimepkg.DispatchMetrics
	StoreStats      = runtimepkg.StoreStats
	LatencyMetrics  = runtimepkg.LatencyMetrics
	StoreInfo       = runtimepkg.StoreInfo
	ResourceUsage   = runtimepkg.ResourceUsage

	TransportFactory     = runtimetransport.Factory
	TransportFactoryFunc = runtimetransport.FactoryFunc
	TransportBuilder     = transport.Builder
	TransportConfig      = transport.Config

	// Audit chain
	Logger        = auditpkg.Logger
	LoggerOption  = auditpkg.LoggerOption
	Sink          = auditpkg.Sink
	SinkFuncs     = auditpkg.SinkFuncs
	Properties    = auditpkg.Properties
	AuditRecord   = auditpkg.Record
	LoggerSink    = auditpkg.LoggerSink
	MetricsSink   = auditpkg.MetricsSink
	TracingSink   = auditpkg.TracingSink
	PublisherSink = auditpkg.PublisherSink

	Event    = ce.Event
	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	ConfigurationError    = errspkg.ConfigurationError
	SubscriptionError     = errspkg.SubscriptionError
	ConfigValidationError = errspkg.ConfigValidationError
)

var (
	New        = runtimepkg.New
	Get        = runtimepkg.Get
	Default    = runtimepkg.Default
	SetDefault = runtimepkg.SetDefault

	NewAction        = storepkg.NewAction
	NewStore         = storepkg.New
	WithInitialState = storepkg.WithInitialState
	WithMiddlewares  = storepkg.WithMiddlewares
	ChainMiddlewares = storepkg.Chain

	DefaultConfig  = configpkg.Default
	ConfigFromEnv  = configpkg.FromEnv
	ValidateConfig = configpkg.ValidateConfig

	DefaultMiddlewares      = runtimepkg.DefaultMiddlewares
	DispatchIDMiddleware    = runtimepkg.DispatchIDMiddleware
	AuditMiddleware         = runtimepkg.AuditMiddleware
	TracerMiddleware        = runtimepkg.TracerMiddleware
	MetricsMiddleware       = runtimepkg.MetricsMiddleware
	StatsMiddleware         = runtimepkg.StatsMiddleware
	LogActionsMiddleware    = runtimepkg.LogActionsMiddleware
	DispatchHooksMiddleware = runtimepkg.DispatchHooksMiddleware
	RecovererMiddleware     = runtimepkg.RecovererMiddleware
	ActionAuditMiddleware   = auditpkg.Middleware
	NewDispatchMetrics      = runtimepkg.NewDispatchMetrics
	LoggingHooks            = runtimepkg.LoggingHooks
	MetricsHooks            = runtimepkg.MetricsHooks
	AlertingHooks           = runtimepkg.AlertingHooks

	NewLogger         = auditpkg.New
	WithFallback      = auditpkg.WithFallback
	NewConsoleLogger  = auditpkg.NewConsoleLogger
	NewLoggerSink     = auditpkg.NewLoggerSink
	NewMetricsSink    = auditpkg.NewMetricsSink
	NewTracingSink    = auditpkg.NewTracingSink
	NewPublisherSink  = auditpkg.NewPublisherSink
	NewAuditGoChannel = auditpkg.NewGoChannel

	NewSlogLogger             = loggingpkg.NewSlogLogger
	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger
	NewZerologServiceLogger   = loggingpkg.NewZerologServiceLogger
	NopLogger                 = loggingpkg.NopLogger

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Stringify     = jsoncodec.Stringify

	DefaultTransportFactory = runtimetransport.DefaultFactory
	RegisterTransport       = transport.Register
	TransportNames          = transport.DefaultRegistry.Names

	NewMetadata = metadatapkg.New
	NewID       = idspkg.New

	ErrStoreNotRegistered = errspkg.ErrStoreNotRegistered
	ErrModuleNameRequired = errspkg.ErrModuleNameRequired
	ErrReducerRequired    = errspkg.ErrReducerRequired
	ErrContainerRequired  = errspkg.ErrContainerRequired
	ErrDispatchInReducer  = errspkg.ErrDispatchInReducer
	ErrActionTypeRequired = errspkg.ErrActionTypeRequired
	ErrLoggerRequired     = errspkg.ErrLoggerRequired
	ErrPublisherRequired  = errspkg.ErrPublisherRequired
	ErrTopicRequired      = errspkg.ErrTopicRequired
	ErrConfigRequired     = errspkg.ErrConfigRequired
)

const (
	// WildcardAction registered as a global action accepts every action type.
	WildcardAction      = configpkg.WildcardAction
	DefaultPlatformName = configpkg.DefaultPlatformName

	ActionInit    = storepkg.ActionInit
	ActionReplace = storepkg.ActionReplace

	MetadataKeyDispatchID = runtimepkg.MetadataKeyDispatchID
	ConsoleLoggerIdentity = auditpkg.ConsoleIdentity
	AuditSource           = auditpkg.Source
	CoordinatorSource     = runtimepkg.AuditSource
	EventStoreRegistered  = runtimepkg.EventStoreRegistered

	AuditPublisherIdentityPrefix = runtimepkg.AuditPublisherIdentityPrefix
)

// TypedReducer adapts a reducer over a concrete state type.
func TypedReducer[S any](fn func(state S, action Action) S) Reducer {
	return storepkg.TypedReducer(fn)
}

// TypedReducerE adapts a fallible reducer over a concrete state type.
func TypedReducerE[S any](fn func(state S, action Action) (S, error)) Reducer {
	return storepkg.TypedReducerE(fn)
}
