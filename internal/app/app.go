package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/dispatchsvc/internal/config"
	"github.com/you/dispatchsvc/internal/infrastructure/logging"
)

const shutdownTimeout = 10 * time.Second

// Run serves the API until SIGINT or SIGTERM
func Run(cfg *config.Config) error {
	log, err := logging.New(cfg.LogLevel, cfg.GinMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := NewContainer(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build dependencies", zap.Error(err))
		return err
	}
	defer c.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.JobsEnabled {
		c.Scheduler.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("sms_provider", cfg.SMSProvider), zap.String("otp_checker", cfg.OTP_Checker))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if cfg.JobsEnabled {
		c.Scheduler.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return err
	}
	log.Info("stopped")
	return nil
}
