package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/yurifrl/ynab-reconciler/pkg/config"
	"github.com/yurifrl/ynab-reconciler/pkg/server"
	"github.com/yurifrl/ynab-reconciler/pkg/service"
	"github.com/yurifrl/ynab-reconciler/pkg/ynab"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Prefix:          "ynab-reconciler",
	})

	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	cfgFile := flags.String("config", "", "Config file (YAML)")
	flags.String("addr", "", "Listen address (default 127.0.0.1:3000)")
	flags.String("statements-dir", "", "Directory tool calls may read csv_file_path from")
	flags.String("log-level", "", "Log level")
	if err := flags.Parse(os.Args[1:]); err != nil {
		logger.Fatal("invalid flags", "err", err)
	}

	cfg, err := config.Build(*cfgFile, flags)
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}
	logger.SetLevel(cfg.Level())
	if cfg.YNAB.Token == "" {
		logger.Fatal("YNAB token required", "env", config.EnvPrefix+"_YNAB_TOKEN")
	}

	client := ynab.New(logger, cfg.YNAB.Token, ynab.Options{
		RequestsPerHour: cfg.YNAB.RequestsPerHour,
		CacheTTL:        cfg.YNAB.CacheTTL,
	})
	srv := server.New(logger, service.New(logger, client, cfg.Matching), server.Options{
		StatementsDir: cfg.Server.StatementsDir,
	})

	logger.Info("starting server", "addr", cfg.Server.Addr)
	if err := srv.Start(cfg.Server.Addr); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
