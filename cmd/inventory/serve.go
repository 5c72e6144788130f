package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"inventory/pkg/inventory/infrastructure/telemetry"
	"inventory/pkg/inventory/infrastructure/transport"
)

const (
	shutdownTimeout   = 15 * time.Second
	healthInterval    = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func serve(ctx context.Context, cfg config) error {
	if cfg.TokenSecret == "" {
		return errors.New("INVENTORY_TOKEN_SECRET is required to serve")
	}

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTELEndpoint, version)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.WithError(err).Warn("flush traces")
		}
	}()

	c, err := newContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: transport.Router(transport.Services{
			PointOfSale: c.pointOfSale,
			Sales:       c.sales,
			Inventory:   c.inventory,
			Queue:       c.queue,
			Replay:      c.replay,
			Processor:   c.syncWorker,
			Verifier:    transport.NewTokenVerifier(cfg.TokenSecret),
		}),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	reporter := transport.NewHealthReporter(c.store, healthInterval)
	grpcServer := transport.NewGRPCServer(reporter)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	killSignalChan := getKillSignalChan()
	defer signal.Stop(killSignalChan)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", cfg.HTTPAddr).Info("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		listener, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return errors.Wrap(err, "grpc listen")
		}
		log.WithField("addr", cfg.GRPCAddr).Info("starting grpc server")
		return errors.Wrap(grpcServer.Serve(listener), "grpc server")
	})
	g.Go(func() error {
		return reporter.Run(gctx)
	})
	g.Go(func() error {
		return c.syncWorker.Run(gctx)
	})
	g.Go(func() error {
		select {
		case killSignal := <-killSignalChan:
			logKillSignal(killSignal)
			cancel()
		case <-gctx.Done():
		}

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		grpcServer.GracefulStop()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("server stopped")
	return err
}

func getKillSignalChan() chan os.Signal {
	osKillSignalChan := make(chan os.Signal, 1)
	signal.Notify(osKillSignalChan, os.Interrupt, syscall.SIGTERM)
	return osKillSignalChan
}

func logKillSignal(killSignal os.Signal) {
	switch killSignal {
	case os.Interrupt:
		log.Info("Got SIGINT...")
	case syscall.SIGTERM:
		log.Info("Got SIGTERM...")
	}
}
