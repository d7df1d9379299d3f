package runtime

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drblury/fedstore/internal/runtime/jsoncodec"
)

// StoreInfo describes one registered module for the inspector.
type StoreInfo struct {
	Name                 string   `json:"name"`
	Platform             bool     `json:"platform"`
	GlobalActions        []string `json:"global_actions"`
	PendingSubscriptions int      `json:"pending_subscriptions"`
}

// InspectorHandler returns the read-only debug API:
//
//	GET /api/state   merged state of every module
//	GET /api/stores  registered modules and their global actions
//	GET /api/stats   per-store dispatch statistics
//	GET /api/runtime CPU, memory and goroutine usage of the process
//	GET /metrics     Prometheus metrics, when enabled
//
// The handler answers 404 unless the inspector or debug mode is enabled.
func (c *Coordinator) InspectorHandler() http.Handler {
	if !c.conf.InspectorEnabled && !c.conf.DebugMode {
		return http.NotFoundHandler()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", c.handleGetState)
	mux.HandleFunc("/api/stores", c.handleGetStores)
	mux.HandleFunc("/api/stats", c.handleGetStats)
	mux.HandleFunc("/api/runtime", c.handleGetRuntime)
	if c.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{}))
	}
	return c.inspectorMiddleware(mux)
}

func (c *Coordinator) inspectorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(c.conf.InspectorCORSAllowedOrigins) > 0 {
			if allowedOrigin := c.getAllowedCORSOrigin(r.Header.Get("Origin")); allowedOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		if !c.authorized(r) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *Coordinator) authorized(r *http.Request) bool {
	if c.conf.InspectorToken == "" {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(c.conf.InspectorToken)) == 1
}

// getAllowedCORSOrigin checks if the request origin is allowed and returns the appropriate
// Access-Control-Allow-Origin value.
func (c *Coordinator) getAllowedCORSOrigin(requestOrigin string) string {
	for _, allowed := range c.conf.InspectorCORSAllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if strings.EqualFold(allowed, requestOrigin) {
			return requestOrigin
		}
	}
	return ""
}

func (c *Coordinator) handleGetState(w http.ResponseWriter, _ *http.Request) {
	state := c.GetGlobalState()
	out := make(map[string]json.RawMessage, len(state))
	for name, v := range state {
		out[name] = json.RawMessage(jsoncodec.Stringify(v))
	}
	c.writeJSON(w, out)
}

func (c *Coordinator) handleGetStores(w http.ResponseWriter, _ *http.Request) {
	pending := c.PendingSubscriptions()
	modules := c.Modules()
	out := make([]StoreInfo, 0, len(modules))
	for _, name := range modules {
		actions := c.GlobalActions(name)
		if actions == nil {
			actions = []string{}
		}
		out = append(out, StoreInfo{
			Name:                 name,
			Platform:             name == c.conf.PlatformName,
			GlobalActions:        actions,
			PendingSubscriptions: pending[name],
		})
	}
	c.writeJSON(w, out)
}

func (c *Coordinator) handleGetStats(w http.ResponseWriter, _ *http.Request) {
	c.writeJSON(w, c.Stats())
}

func (c *Coordinator) handleGetRuntime(w http.ResponseWriter, _ *http.Request) {
	usage := c.resources.Snapshot()
	usage.Stores = len(c.orderedEntries())
	c.writeJSON(w, usage)
}

func (c *Coordinator) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := jsoncodec.Encode(w, v); err != nil {
		c.log.Error("Failed to encode inspector response", err, nil)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
