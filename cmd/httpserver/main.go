package main

import (
	"log"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/ruteri/exampledb/cmd/flags"
	"github.com/ruteri/exampledb/common"
	"github.com/ruteri/exampledb/httpserver"
	"github.com/urfave/cli/v2"
)

var listenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

func main() {
	app := &cli.App{
		Name:    "httpserver",
		Usage:   "Serve a shared example database over HTTP",
		Version: common.Version,
		Flags: slices.Concat(
			[]cli.Flag{listenAddrFlag, flags.LogServiceFlagFn("exampledb-server")},
			flags.StoreFlags,
			flags.LogFlags,
			flags.ServerFlags,
		),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx, os.Stdout)

			db, err := flags.OpenDatabase(cCtx, cCtx.StringSlice(flags.DBFlag.Name), logger)
			if err != nil {
				logger.Error("Failed to open example database", "err", err)
				return err
			}
			defer db.Close()

			logger.Info("Example database opened", "location", db.Backend().LocationURI())

			cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(listenAddrFlag.Name))
			server, err := httpserver.New(cfg, db.Backend())
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			// Wait for termination signal
			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
