// cmd/server/serve.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Isadevans/lucro-backend/internal/handler"
	"github.com/Isadevans/lucro-backend/pkg/middleware"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.log

	if a.broadcaster != nil {
		go func() {
			if err := a.broadcaster.Run(ctx); err != nil {
				log.Error("room event relay stopped", zap.Error(err))
			}
		}()
	}

	webhookHandler := handler.NewWebhookHandler(a.reconciler, log)
	paymentHandler := handler.NewPaymentHandler(a.payments, a.attribution, a.hub, log)

	router := setupRouter(a, webhookHandler, paymentHandler)

	// no WriteTimeout: event streams stay open
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", a.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// event streams only end when their subscription closes
	srv.RegisterOnShutdown(a.hub.Close)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server",
			zap.String("port", a.cfg.Port),
			zap.String("environment", a.cfg.Environment),
			zap.String("postback_url", a.cfg.PostbackURL()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Info("shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}

func setupRouter(a *app, webhooks *handler.WebhookHandler, payments *handler.PaymentHandler) *gin.Engine {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(a.log))
	router.Use(middleware.Recovery(a.log))
	router.Use(middleware.CORS(a.cfg.CORSAllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := a.store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
		if a.redisClient != nil {
			if err := a.redisClient.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/blackout/webhook", webhooks.BlackoutWebhook)

		p := api.Group("/payments")
		{
			p.POST("", payments.CreatePayment)
			p.GET("/:documentId", payments.GetPayment)
			p.GET("/:documentId/events", payments.PaymentEvents)
			p.GET("/transaction/:transactionId", payments.GetPaymentByTransaction)
			p.POST("/transaction/:transactionId/resync", payments.ResyncPayment)
		}
	}

	return router
}
