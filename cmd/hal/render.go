package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/teslashibe/go-hal/internal/config"
	"github.com/teslashibe/go-hal/pkg/display"
	"github.com/teslashibe/go-hal/pkg/eye"
	"github.com/teslashibe/go-hal/pkg/scene"
)

func newRenderCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Render one eye frame to a PNG",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "state",
				Usage: "Backend state string used for the flags",
				Value: display.StateIdle,
			},
			&cli.DurationFlag{
				Name:  "at",
				Usage: "Animation time since start",
			},
			&cli.IntFlag{
				Name:  "size",
				Usage: "Canvas width and height",
				Value: config.DefaultPanelWidth,
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output file",
				Value:   "hal.png",
			},
		},
		Action: runRender,
	}
}

func runRender(_ context.Context, cmd *cli.Command) error {
	size := cmd.Int("size")
	if size < 16 || size > 4096 {
		return fmt.Errorf("size %d out of range", size)
	}

	epoch := time.Time{}
	rs := display.RenderState{
		Mode:   display.ModeEye,
		State:  cmd.String("state"),
		Flags:  display.Classify(cmd.String("state")),
		Online: true,
	}

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	s := scene.New(eye.NewRenderer(epoch), nil)
	s.Compose(canvas, epoch.Add(cmd.Duration("at")), rs)

	f, err := os.Create(cmd.String("out"))
	if err != nil {
		return err
	}
	if err := png.Encode(f, canvas); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	frame := s.LastEyeFrame()
	fmt.Printf("wrote %s (pulse %.3f, label %q)\n", cmd.String("out"), frame.Pulse, rs.Label())
	return nil
}
