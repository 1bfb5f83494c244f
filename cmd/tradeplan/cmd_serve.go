package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ksred/tradeplan/internal/database"
	"github.com/ksred/tradeplan/internal/status"
	"github.com/ksred/tradeplan/pkg/middleware"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a read-only status API over the engine database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = a.cfg.Server.Port
			}
			return a.runServe(cmd.Context(), port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen port (overrides server.port)")
	return cmd
}

func (a *app) runServe(ctx context.Context, port string) error {
	db, err := a.openDB(false)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if a.cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(status.NewGinHandlers(status.NewService(db, a.cfg.BackupDir)))

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Graceful shutdown setup
	errCh := make(chan error, 1)
	go func() {
		zlog.Info().Str("addr", srv.Addr).Msg("status API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	case <-ctx.Done():
	}
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding requests 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	zlog.Info().Msg("Server exiting")
	return nil
}

// newRouter wires the status endpoints under /api/v1.
func newRouter(handlers *status.GinHandlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.RateLimit())

	v1 := router.Group("/api/v1")
	handlers.RegisterRoutes(v1)
	return router
}
