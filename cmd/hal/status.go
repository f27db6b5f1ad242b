package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/teslashibe/go-hal/pkg/display"
)

func newStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Poll the backend once and print the display state",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the render state as JSON",
			},
		},
		Action: runStatus,
	}
}

func runStatus(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := validate(cfg); err != nil {
		return err
	}

	p := display.NewPoller(cfg.StatusURL(), display.WithTimeout(cfg.Backend.StatusTimeout.D()))
	st, err := p.Poll(ctx)
	if err != nil {
		return err
	}

	classify := display.Classify
	if cfg.States.Strict {
		classify = display.ClassifyStrict
	}
	rs, _ := display.NewSelector(classify).Apply(st)

	if cmd.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rs)
	}

	fmt.Printf("Backend:   %s\n", cfg.StatusURL())
	fmt.Printf("Mode:      %s\n", rs.Mode)
	fmt.Printf("State:     %s\n", rs.State)
	if rs.Person != "" {
		fmt.Printf("Person:    %s\n", rs.Person)
	}
	fmt.Printf("Listening: %v\n", rs.Flags.Listening)
	fmt.Printf("Speaking:  %v\n", rs.Flags.Speaking)
	fmt.Printf("Label:     %s\n", rs.Label())
	return nil
}
