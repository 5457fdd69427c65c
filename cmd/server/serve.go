package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/cartelera/internal/handler"
	"github.com/iliyamo/cartelera/internal/middleware"
	"github.com/iliyamo/cartelera/internal/queue"
	"github.com/iliyamo/cartelera/internal/router"
	"github.com/iliyamo/cartelera/internal/scheduler"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, the message-pattern consumer and the refresh schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cc.cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, cc.cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	log := a.log

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	router.RegisterRoutes(e, handler.NewListingHandler(a.svc, log), a.cfg, a.rdb, log)

	if a.cfg.AMQP.Enabled {
		dispatcher := handler.NewDispatcher(a.svc, log)
		consumer := queue.NewConsumer(a.cfg.AMQP.URL, a.cfg.AMQP.RequestQueue, dispatcher.Dispatch, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("rpc consumer stopped", zap.Error(err))
			}
		}()
	}

	var sched *scheduler.Scheduler
	if spec := a.cfg.RefreshSchedule; spec != "" {
		var err error
		if sched, err = scheduler.New(spec, a.svc, time.Hour, log); err != nil {
			return err
		}
		sched.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + a.cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", a.cfg.Env))
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	log.Info("shutting down")
	return e.Shutdown(shutdownCtx)
}
