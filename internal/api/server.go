package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/jdholdren/stockroom/internal/importer"
	"github.com/jdholdren/stockroom/internal/serverutil"
	"github.com/jdholdren/stockroom/internal/stockroom"
)

type (
	// Server is the admin api. It manages sources, queues imports and lists
	// the products they produced.
	Server struct {
		*http.Server

		repo       stockroom.Repository
		dispatcher importer.Dispatcher
	}

	ServerConfig struct {
		Port       int
		CorsOrigin string
	}

	Params struct {
		fx.In

		Config     ServerConfig
		Repo       stockroom.Repository
		Dispatcher importer.Dispatcher
		Gatherer   prometheus.Gatherer
	}
)

func NewServer(lc fx.Lifecycle, p Params) *Server {
	srvr := newServer(p)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srvr.Addr)
			if err != nil {
				return fmt.Errorf("error listening on %s: %w", srvr.Addr, err)
			}
			go func() {
				if err := srvr.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("api server stopped", "err", err)
				}
			}()

			slog.Info("started api server", "port", p.Config.Port)

			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srvr.Shutdown(ctx)
		},
	})

	return srvr
}

func newServer(p Params) *Server {
	r := serverutil.ErrRouter{Router: mux.NewRouter()}

	corsOrigin := p.Config.CorsOrigin
	if corsOrigin == "" {
		corsOrigin = "*"
	}

	srvr := &Server{
		repo:       p.Repo,
		dispatcher: p.Dispatcher,
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%d", p.Config.Port),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			Handler: handlers.CORS(
				handlers.AllowedOrigins([]string{corsOrigin}),
				handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
				handlers.AllowedHeaders([]string{"content-type"}),
			)(r),
		},
	}

	r.Use(serverutil.AccessLogMiddleware) // Log everything

	// Sources
	r.HandleFuncE("/api/sources", srvr.getSources).Methods(http.MethodGet)
	r.HandleFuncE("/api/sources", srvr.postSource).Methods(http.MethodPost)
	r.HandleFuncE("/api/sources/{sourceID}", srvr.getSource).Methods(http.MethodGet)
	r.HandleFuncE("/api/sources/{sourceID}", srvr.patchSource).Methods(http.MethodPatch)
	r.HandleFuncE("/api/sources/{sourceID}", srvr.deleteSource).Methods(http.MethodDelete)
	r.HandleFuncE("/api/sources/{sourceID}/import", srvr.postSourceImport).Methods(http.MethodPost)

	// Catalog
	r.HandleFuncE("/api/products", srvr.getProducts).Methods(http.MethodGet)

	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	return srvr
}
