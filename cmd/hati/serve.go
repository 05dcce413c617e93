package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpserver "github.com/xiaot623/hati/internal/transport/http"
	"github.com/xiaot623/hati/internal/transport/ws"
)

func newServeCmd(open func(*cobra.Command) (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.log.Info("starting hati",
		zap.Int("http_port", a.cfg.HTTPPort),
		zap.String("database", a.cfg.DatabaseURL),
		zap.String("llm_base_url", a.cfg.LLM.BaseURL),
		zap.String("model", a.cfg.LLM.Model),
	)

	hub := ws.NewHub(a.log)
	wsServer := ws.NewServer(a.cfg.WS, hub, a.svc, a.log)
	e := httpserver.NewServer(a.svc, a.catalog, httpserver.Options{
		AllowOrigins: []string{a.cfg.FrontendURL},
		WebSocket:    wsServer.HandleWebSocket,
	})
	e.HidePort = true

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return a.svc.RunCacheSweeper(gctx, a.cfg.SweepSchedule)
	})
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", a.cfg.HTTPPort)
		a.log.Info("http server listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down hati")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("graceful shutdown failed", zap.Error(err))
		}
		return nil
	})

	err := g.Wait()
	a.log.Info("hati stopped")
	return err
}
