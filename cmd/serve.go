package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/boxflow/internal/config"
	"github.com/sells-group/boxflow/internal/metadata"
	"github.com/sells-group/boxflow/internal/resilience"
	"github.com/sells-group/boxflow/internal/webhook"
)

const maxWebhookBody = 1 << 20

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server that reconciles uploaded files",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, config.ModeServe, true)
		if err != nil {
			return err
		}
		defer env.Close()

		verifier, err := webhook.NewVerifier(cfg.Server.WebhookPrimaryKey, cfg.Server.WebhookSecondaryKey)
		if err != nil {
			return err
		}

		r := env.reconciler()
		if err := r.EnsureTemplate(ctx); err != nil {
			return err
		}

		h := newWebhookHandler(ctx, verifier, r, cfg.Batch.MaxConcurrentFiles)
		h.breakers = env.Breakers
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", resolvePort(servePort, cfg.Server.Port)),
			Handler:           buildRouter(h, cfg.Server.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}
		return startServer(ctx, srv, h)
	},
}

// fileReconciler is the part of metadata.Reconciler the webhook needs.
type fileReconciler interface {
	ReconcileFile(ctx context.Context, fileID, fileName string) (metadata.FileResult, error)
}

// webhookHandler accepts Box deliveries and reconciles uploaded files in the
// background, bounded by the group's limit.
type webhookHandler struct {
	ctx        context.Context
	verifier   *webhook.Verifier
	reconciler fileReconciler
	group      *errgroup.Group
	breakers   *resilience.ServiceBreakers // optional, reported by /health
}

func newWebhookHandler(ctx context.Context, v *webhook.Verifier, r fileReconciler, limit int) *webhookHandler {
	g := &errgroup.Group{}
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)
	return &webhookHandler{ctx: ctx, verifier: v, reconciler: r, group: g}
}

// Wait blocks until every accepted reconciliation has finished.
func (h *webhookHandler) Wait() {
	_ = h.group.Wait()
}

func (h *webhookHandler) handleBox(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	if err := h.verifier.Verify(r.Header, body); err != nil {
		zap.L().Warn("webhook rejected",
			zap.String("delivery_id", r.Header.Get(webhook.HeaderDeliveryID)),
			zap.Error(err),
		)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	ev, err := webhook.Decode(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event"})
		return
	}
	if !ev.IsFileUpload() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "trigger": ev.Trigger})
		return
	}

	fileID, fileName := ev.Source.ID, ev.Source.Name
	started := h.group.TryGo(func() error {
		res, err := h.reconciler.ReconcileFile(h.ctx, fileID, fileName)
		if err == nil {
			err = res.Err
		}
		if err != nil {
			zap.L().Error("webhook reconcile failed",
				zap.String("file_id", fileID),
				zap.String("stage", res.Stage),
				zap.Error(err),
			)
			return nil
		}
		zap.L().Info("webhook reconcile complete",
			zap.String("file_id", fileID),
			zap.String("outcome", string(res.Outcome)),
		)
		return nil
	})
	if !started {
		w.Header().Set("Retry-After", "30")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "busy"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "file_id": fileID})
}

func (h *webhookHandler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok"}
	if h.breakers != nil {
		circuits := make(map[string]string)
		for name, state := range h.breakers.States() {
			circuits[name] = state.String()
			if state == resilience.CircuitOpen {
				resp["status"] = "degraded"
			}
		}
		resp["circuits"] = circuits
	}
	writeJSON(w, http.StatusOK, resp)
}

// buildRouter mounts the health check and the Box webhook endpoint.
func buildRouter(h *webhookHandler, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", h.handleHealth)
	r.Post("/webhooks/box", h.handleBox)
	return r
}

// startServer serves until ctx is cancelled, then drains in-flight
// reconciliations.
func startServer(ctx context.Context, srv *http.Server, h *webhookHandler) error {
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.String("addr", srv.Addr))
	err := srv.ListenAndServe()
	h.Wait()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

// resolvePort prefers the flag over config, then 8080.
func resolvePort(flag, configured int) int {
	if flag > 0 {
		return flag
	}
	if configured > 0 {
		return configured
	}
	return 8080
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
