package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/divemart/pricewatch/internal/resolver"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for price aggregation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		mux.HandleFunc("GET /v1/products/{id}/prices", func(w http.ResponseWriter, r *http.Request) {
			id := r.PathValue("id")
			brand := r.URL.Query().Get("brand")
			productModel := r.URL.Query().Get("model")

			prices, err := e.aggregator.FetchCompetitorPrices(r.Context(), id, productModel, brand)
			if err != nil {
				var rerr *resolver.Error
				status := http.StatusInternalServerError
				if errors.As(err, &rerr) {
					status = http.StatusBadGateway
				}
				zap.L().Error("serve: aggregation failed",
					zap.String("product_id", id),
					zap.Error(err),
				)
				writeJSON(w, status, map[string]string{"error": "competitor url resolution failed"})
				return
			}
			writeJSON(w, http.StatusOK, prices)
		})

		mux.HandleFunc("GET /v1/products/{id}/prices/cached", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, e.aggregator.LastFetchedPrices(r.Context(), r.PathValue("id")))
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
