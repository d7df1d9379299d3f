package runtime

import (
	"os"
	"sync"

	"github.com/drblury/fedstore/internal/runtime/audit"
	"github.com/drblury/fedstore/internal/runtime/config"
	loggingpkg "github.com/drblury/fedstore/internal/runtime/logging"
)

var (
	defaultMu          sync.Mutex
	defaultCoordinator *Coordinator
)

// Get returns the process-wide coordinator, creating it on first use.
// Settings come from the environment; debugMode additionally enables debug
// mode. In debug mode the console audit logger is installed when logger is
// nil. Later calls return the same instance and ignore their arguments.
func Get(debugMode bool, logger *audit.Logger) *Coordinator {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultCoordinator != nil {
		return defaultCoordinator
	}

	log := loggingpkg.NewSlogServiceLogger(loggingpkg.NewSlogLogger("info", "text", os.Stderr))

	cfg, err := config.FromEnv()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		log.Error("Ignoring invalid coordinator environment", err, nil)
		cfg = config.Default()
	}
	cfg.DebugMode = cfg.DebugMode || debugMode

	defaultCoordinator = newDefault(cfg, logger, log)
	return defaultCoordinator
}

// newDefault builds the process-wide coordinator. A failing audit transport
// is logged and dropped, and any other failure falls back to the defaults.
func newDefault(cfg *config.Config, logger *audit.Logger, log loggingpkg.ServiceLogger) *Coordinator {
	c, err := New(cfg, Dependencies{AuditLogger: logger})
	if err == nil {
		return c
	}
	log.Error("Starting coordinator without audit transport", err, loggingpkg.LogFields{
		"transport": cfg.AuditTransport,
	})

	fallback := *cfg
	fallback.AuditTransport = ""
	if c, err = New(&fallback, Dependencies{AuditLogger: logger}); err == nil {
		return c
	}
	log.Error("Starting coordinator with default configuration", err, nil)

	fallback = *config.Default()
	fallback.DebugMode = cfg.DebugMode
	c, err = New(&fallback, Dependencies{AuditLogger: logger})
	if err != nil {
		panic("fedstore: default coordinator: " + err.Error())
	}
	return c
}

// Default returns the process-wide coordinator without forcing debug mode.
func Default() *Coordinator {
	return Get(false, nil)
}

// SetDefault replaces the process-wide coordinator and returns the previous
// one. Passing nil makes the next Get build a fresh instance.
func SetDefault(c *Coordinator) *Coordinator {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	previous := defaultCoordinator
	defaultCoordinator = c
	return previous
}
