// Package server exposes RADOLAN catalogs over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jddeal/go-radolan/catalog"
	"github.com/jddeal/go-radolan/internal/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-ID"

type ctxKey int

const loggerKey ctxKey = iota

// Server serves product listings, headers and decoded grids of a catalog.
type Server struct {
	httpServer *http.Server
	catalog    catalog.Catalog
	metrics    *observability.Metrics
	cache      *gridCache
	missing    int32
}

// New creates a server on addr. missing is the value passed to the decoder and substituted
// for no-data cells in scaled grids.
func New(addr string, cat catalog.Catalog, metrics *observability.Metrics, cacheSize int, missing int32) *Server {
	s := &Server{
		catalog: cat,
		metrics: metrics,
		cache:   newGridCache(cacheSize),
		missing: missing,
	}

	r := mux.NewRouter()
	r.Use(requestLogger)
	r.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/products/{product}", s.listHandler).Methods(http.MethodGet)
	r.HandleFunc("/products/{product}/{name}", s.metaHandler).Methods(http.MethodGet)
	r.HandleFunc("/products/{product}/{name}/grid", s.gridHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         addr,
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      r,
	}
	return s
}

// Start listens until Shutdown. It returns http.ErrServerClosed after a graceful shutdown.
func (s *Server) Start() error {
	logrus.Infof("listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains connections within the deadline of ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// requestLogger tags every request with an id and a logger carrying it.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		log := logrus.WithFields(logrus.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
		})
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), loggerKey, log)))
		log.WithField("duration", time.Since(start)).Debug("request served")
	})
}

func loggerFrom(ctx context.Context) *logrus.Entry {
	if log, ok := ctx.Value(loggerKey).(*logrus.Entry); ok {
		return log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
