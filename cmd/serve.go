package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wanderlane/tour-cli/internal/model"
	"github.com/wanderlane/tour-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve read-only pipeline state over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		events, err := openEvents(ctx)
		if err != nil {
			return eris.Wrap(err, "open event log")
		}
		defer events.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/api/status", func(w http.ResponseWriter, req *http.Request) {
			doc, err := store.LoadDocument(cfg.Paths.DocumentPath())
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"meta":          doc.Meta,
				"pois":          len(doc.POIs),
				"status_counts": doc.StatusCounts(),
			})
		})

		r.Get("/api/itinerary", func(w http.ResponseWriter, req *http.Request) {
			var it model.Itinerary
			if err := store.LoadJSON(cfg.Paths.ItineraryPath(), &it); err != nil {
				if os.IsNotExist(eris.Cause(err)) {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "no itinerary yet"})
					return
				}
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, &it)
		})

		r.Get("/api/events", func(w http.ResponseWriter, req *http.Request) {
			limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
			evs, err := events.Recent(req.Context(), req.URL.Query().Get("stage"), limit)
			if err != nil {
				writeError(w, err)
				return
			}
			if evs == nil {
				evs = []store.Event{}
			}
			writeJSON(w, http.StatusOK, evs)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go drainOnSignal(ctx, srv)

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// drainOnSignal waits for the signal context, then drains the server on a
// fresh deadline. The triggering context is already canceled at that point,
// so it cannot carry the shutdown itself.
func drainOnSignal(ctx context.Context, srv *http.Server) {
	<-ctx.Done()
	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("server shutdown", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
