package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"inventory/pkg/inventory/infrastructure/mysql"
	"inventory/pkg/inventory/infrastructure/seed"
)

func newApp() *cli.App {
	var cfg config
	return &cli.App{
		Name:    appID,
		Usage:   "point-of-sale stock ledger with offline sale replay",
		Version: version,
		Before: func(*cli.Context) error {
			var err error
			if cfg, err = loadConfig(); err != nil {
				return err
			}
			return setupLogging(cfg.LogLevel)
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API, the gRPC health service and the sync worker",
				Action: func(c *cli.Context) error {
					return serve(c.Context, cfg)
				},
			},
			{
				Name:  "migrate",
				Usage: "apply database migrations",
				Action: func(*cli.Context) error {
					return mysql.Migrate(cfg.DBDSN)
				},
			},
			{
				Name:  "replay",
				Usage: "replay pending offline sales once and exit",
				Action: func(c *cli.Context) error {
					deps, err := newContainer(c.Context, cfg)
					if err != nil {
						return err
					}
					defer deps.Close()

					result, err := deps.syncWorker.Process(c.Context)
					if err != nil {
						return err
					}
					log.WithFields(log.Fields{
						"processed": result.Processed,
						"failed":    result.Failed,
					}).Info("replay finished")
					return nil
				},
			},
			{
				Name:  "seed",
				Usage: "load the demo catalog into the database",
				Action: func(c *cli.Context) error {
					deps, err := newContainer(c.Context, cfg)
					if err != nil {
						return err
					}
					defer deps.Close()

					count, err := seed.LoadDemoCatalog(c.Context, deps.store)
					if err != nil {
						return err
					}
					log.WithField("products", count).Info("demo catalog loaded")
					return nil
				},
			},
		},
	}
}
