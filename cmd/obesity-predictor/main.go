// Command obesity-predictor serves the prediction form for a trained
// obesity classifier artifact.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/delvitaw/obesity/obesity"
	"github.com/delvitaw/obesity/pkg/config"
	"github.com/delvitaw/obesity/pkg/log"
	"github.com/delvitaw/obesity/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.LogError(err, "Predictor failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	srv, cfg, err := setup(args)
	if err != nil {
		return err
	}
	if cfg.Server.WatchReload {
		if err := srv.Watch(ctx, cfg.Output.Artifact); err != nil {
			return err
		}
	}
	return srv.Run(ctx, cfg.Server.Addr)
}

// setup parses flags, configures logging and loads the artifact.
func setup(args []string) (*server.Server, *config.Config, error) {
	fs := flag.NewFlagSet("obesity-predictor", flag.ContinueOnError)
	configPath := fs.String("config", "", "TOML configuration file")
	artifact := fs.String("artifact", "", "Artifact path (overrides output.artifact)")
	addr := fs.String("addr", "", "Listen address (overrides server.addr)")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	watch := fs.Bool("watch", false, "Reload the artifact when it changes (overrides server.watch_reload)")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "artifact":
			cfg.Output.Artifact = *artifact
		case "addr":
			cfg.Server.Addr = *addr
		case "log-level":
			cfg.Log.Level = *logLevel
		case "watch":
			cfg.Server.WatchReload = *watch
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if err := log.Setup(cfg.LogSettings()); err != nil {
		return nil, nil, err
	}
	logger := log.GetLoggerWithName("obesity-predictor")

	p, err := obesity.LoadPredictor(cfg.Output.Artifact, logger)
	if err != nil {
		return nil, nil, err
	}
	a := p.Artifact()
	logger.Info("Artifact loaded",
		log.PathKey, cfg.Output.Artifact,
		log.ClassesKey, len(a.Classes),
		log.AccuracyKey, a.TestAccuracy,
	)

	srv, err := server.New(p, cfg.Server, logger)
	if err != nil {
		return nil, nil, err
	}
	return srv, cfg, nil
}
