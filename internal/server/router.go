package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/juju/clock"
	"go.uber.org/zap"

	"github.com/vanshika/nftgateway/internal/cache"
	"github.com/vanshika/nftgateway/internal/config"
	"github.com/vanshika/nftgateway/internal/metrics"
	"github.com/vanshika/nftgateway/internal/service"
)

const (
	allowedMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	allowedHeaders = "Content-Type, Authorization, X-Requested-With, Accept, Origin, X-User-Id, X-API-Key"

	actionCollectionFriends = "collectionFriends"
)

// RouterDependencies collects handler dependencies. Nil components leave
// their routes answering with a configuration error.
type RouterDependencies struct {
	Health    HealthService
	Profiles  ProfileResolver
	Indexer   NftIndexer
	Portfolio PortfolioQuerier
	Friends   FriendsFinder
	Images    http.Handler
	Folders   *service.FolderService
	Cache     *cache.Cache
	Metrics   *metrics.Metrics
	Upstreams UpstreamStatus
	Auth      config.AuthConfig
	Clock     clock.Clock

	Version        string
	AllowedOrigins []string
	RequestTimeout time.Duration
	MetricsEnabled bool
}

// NewRouter wires the HTTP routes exposed by the gateway.
func NewRouter(logger *zap.Logger, deps RouterDependencies) http.Handler {
	if deps.Clock == nil {
		deps.Clock = clock.WallClock
	}
	h := newHandlers(logger, deps)

	r := mux.NewRouter()
	r.Use(routeLabel)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeStatus(w, http.StatusNotFound, "no route for "+req.URL.Path)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		methodNotAllowed(w, allowedFor(r, req)...)
	})

	r.HandleFunc("/api/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/api/diagnostic", h.diagnostic).Methods(http.MethodGet)
	r.HandleFunc("/api/farcaster-profile", h.profile).Methods(http.MethodGet)
	r.HandleFunc("/api/alchemy", h.alchemy).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/api/zapper", h.zapper).Methods(http.MethodPost)
	r.HandleFunc("/api/collection-friends", h.collectionFriends).Methods(http.MethodGet)
	r.HandleFunc("/api/image-proxy", h.imageProxy).Methods(http.MethodGet)
	r.HandleFunc("/api/all-in-one", h.allInOne).Methods(http.MethodGet)

	r.HandleFunc("/api/folders", h.listFolders).Methods(http.MethodGet)
	r.HandleFunc("/api/folders", h.createFolder).Methods(http.MethodPost)
	r.HandleFunc("/api/folders/{id}", h.getFolder).Methods(http.MethodGet)
	r.HandleFunc("/api/folders/{id}", h.replaceFolder).Methods(http.MethodPut)
	r.HandleFunc("/api/folders/{id}", h.patchFolder).Methods(http.MethodPatch)
	r.HandleFunc("/api/folders/{id}", h.deleteFolder).Methods(http.MethodDelete)
	r.HandleFunc("/api/folders/{id}/items", h.addFolderItems).Methods(http.MethodPost)
	r.HandleFunc("/api/folders/{id}/items/{chain}/{contract}/{tokenId}", h.removeFolderItem).Methods(http.MethodDelete)

	if deps.MetricsEnabled && deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	var handler http.Handler = r
	handler = actionPrecedence(h, handler)
	handler = timeoutMiddleware(deps.RequestTimeout, handler)
	handler = recoverMiddleware(logger, handler)
	handler = loggingMiddleware(logger, deps.Metrics, handler)
	return corsMiddleware(deps.AllowedOrigins)(handler)
}

// allowedFor lists the methods some route accepts for req's path.
func allowedFor(r *mux.Router, req *http.Request) []string {
	var allowed []string
	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		probe := req.Clone(req.Context())
		probe.Method = m
		var match mux.RouteMatch
		if r.Match(probe, &match) && match.MatchErr == nil {
			allowed = append(allowed, m)
		}
	}
	return allowed
}

// actionPrecedence sends action=collectionFriends to the collection-friends
// handler whatever the path.
func actionPrecedence(h *handlers, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("action") != actionCollectionFriends {
			next.ServeHTTP(w, r)
			return
		}
		if rec, ok := w.(*responseRecorder); ok {
			rec.route = "action:" + actionCollectionFriends
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		h.collectionFriends(w, r)
	})
}

func timeoutMiddleware(timeout time.Duration, next http.Handler) http.Handler {
	if timeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func recoverMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				logger.Error("handler panic",
					zap.Any("panic", v),
					zap.String("path", r.URL.Path),
					zap.ByteString("stack", debug.Stack()),
				)
				writeStatus(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(logger *zap.Logger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK, route: "unmatched"}
		next.ServeHTTP(rec, r)
		m.ObserveRequest(rec.route, r.Method, rec.status)
		logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", rec.route),
			zap.Int("status", rec.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

// routeLabel stores the matched route template for logs and metrics.
func routeLabel(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rec, ok := w.(*responseRecorder); ok {
			if route := mux.CurrentRoute(r); route != nil {
				if tmpl, err := route.GetPathTemplate(); err == nil {
					rec.route = tmpl
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

type responseRecorder struct {
	http.ResponseWriter
	status      int
	route       string
	wroteHeader bool
}

func (r *responseRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

// Flush lets streamed image bodies reach the client as they arrive.
func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// corsMiddleware answers every response with CORS headers and short-circuits
// preflight requests. "*" in allowedOrigins, or an empty list, allows any origin.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	normalized := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		normalized[origin] = struct{}{}
	}
	_, wildcard := normalized["*"]
	wildcard = wildcard || len(normalized) == 0

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case wildcard:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case containsOrigin(normalized, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func containsOrigin(set map[string]struct{}, origin string) bool {
	_, ok := set[origin]
	return ok
}
