package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Start serves handler on addr in the background. The returned context is
// cancelled once the server has stopped, either because it failed or because
// ctx was cancelled and in-flight requests drained.
func Start(ctx context.Context, name, addr string, handler http.Handler, log *zap.Logger) context.Context {
	stopped, cancel := context.WithCancel(context.Background())

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		defer cancel()
		log.Info("service started", zap.String("name", name), zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("service stopped", zap.String("name", name), zap.Error(err))
			return
		}
		log.Info("service stopped", zap.String("name", name))
	}()

	go func() {
		select {
		case <-stopped.Done():
		case <-ctx.Done():
			shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
			defer done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("graceful shutdown failed", zap.String("name", name), zap.Error(err))
				srv.Close()
			}
		}
	}()

	return stopped
}
