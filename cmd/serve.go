package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow/internal/engagement"
	"github.com/sells-group/leadflow/internal/server"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 15 * time.Second
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the engagement webhook, health and metrics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tracker := engagement.NewTracker(st, engagement.WithPromotionHook(logPromotion))

		if cfg.NATS.URL != "" {
			nc, sub, err := startSubscriber(tracker)
			if err != nil {
				return err
			}
			defer func() {
				if err := sub.Stop(); err != nil {
					zap.L().Warn("stop engagement subscriber", zap.Error(err))
				}
				nc.Close()
			}()
		}

		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: server.NewRouter(tracker, server.Options{
				CORSOrigins:    cfg.Server.CORSOrigins,
				RequestTimeout: requestTimeout,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func startSubscriber(tracker engagement.EventTracker) (*nats.Conn, *engagement.Subscriber, error) {
	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name("leadflow"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				zap.L().Warn("nats disconnected", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, nil, eris.Wrap(err, "connect nats")
	}

	sub := engagement.NewSubscriber(tracker, 0)
	if err := sub.Start(nc, cfg.NATS.Subject, cfg.NATS.Queue); err != nil {
		nc.Close()
		return nil, nil, err
	}
	return nc, sub, nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
