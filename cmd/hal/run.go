package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/teslashibe/go-hal/internal/log"
	"github.com/teslashibe/go-hal/pkg/app"
)

func newRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Poll the backend and drive the display",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Backend host",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Backend port",
			},
			&cli.IntFlag{
				Name:  "dashboard-port",
				Usage: "Serve the preview dashboard on this port",
			},
			&cli.StringFlag{
				Name:  "panel",
				Usage: "Extra panel driver: none or ssd1306",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Classify only known backend state codes",
			},
		},
		Action: runDisplay,
	}
}

func runDisplay(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cmd.IsSet("host") {
		cfg.Backend.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Backend.Port = cmd.Int("port")
	}
	if cmd.IsSet("dashboard-port") {
		cfg.Dashboard.Enabled = true
		cfg.Dashboard.Port = cmd.Int("dashboard-port")
	}
	if cmd.IsSet("panel") {
		cfg.Panel.Driver = cmd.String("panel")
	}
	if cmd.IsSet("strict") {
		cfg.States.Strict = cmd.Bool("strict")
	}

	a, err := app.New(*cfg)
	if err != nil {
		return err
	}
	if err := a.Init(); err != nil {
		return err
	}
	defer a.Shutdown()

	log.Info("display running", "backend", cfg.StatusURL())
	return a.Run(ctx)
}
