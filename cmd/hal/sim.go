package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/teslashibe/go-hal/internal/config"
	"github.com/teslashibe/go-hal/internal/log"
	"github.com/teslashibe/go-hal/pkg/sim"
)

func newSimCommand() *cli.Command {
	return &cli.Command{
		Name:  "sim",
		Usage: "Serve a simulated HAL backend for development",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on (default: backend.port from the config)",
			},
			&cli.StringFlag{
				Name:  "snapshot",
				Usage: "JPEG or PNG served as the face frame (default: test pattern)",
			},
			&cli.StringFlag{
				Name:  "person",
				Usage: "Name reported when the script confirms a person",
				Value: sim.DefaultPerson,
			},
			&cli.DurationFlag{
				Name:  "step",
				Usage: "Advance the conversation script this often (0 disables)",
				Value: 4 * time.Second,
			},
		},
		Action: runSim,
	}
}

func runSim(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []sim.Option{sim.WithScript(sim.Conversation(cmd.String("person")))}
	if path := cmd.String("snapshot"); path != "" {
		img, err := sim.LoadSnapshot(path)
		if err != nil {
			return err
		}
		opts = append(opts, sim.WithSnapshot(img))
	}
	s := sim.New(opts...)

	if step := cmd.Duration("step"); step > 0 {
		go s.Run(ctx, step)
		log.Info("conversation script running", "step", step)
	}
	return s.ListenAndServe(ctx, simPort(cmd, cfg))
}

// simPort is --port when given, otherwise the backend port the display
// would poll.
func simPort(cmd *cli.Command, cfg *config.Config) int {
	if cmd.IsSet("port") {
		return cmd.Int("port")
	}
	return cfg.Backend.Port
}
