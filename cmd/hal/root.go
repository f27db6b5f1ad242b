package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/teslashibe/go-hal/internal/config"
	"github.com/teslashibe/go-hal/internal/log"
)

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "hal",
		Usage: "HAL 9000 status display",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (yaml or jsonc)",
				Value:   config.Path(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			newRunCommand(),
			newSimCommand(),
			newStatusCommand(),
			newRenderCommand(),
			newWatchCommand(),
		},
	}
}

// loadConfig reads the config named by --config, applies --debug and
// initialises logging.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if cmd.Bool("debug") {
		cfg.Log.Level = "debug"
	}
	log.Init(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

func validate(cfg *config.Config) error {
	if problems := cfg.Validate(); len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
