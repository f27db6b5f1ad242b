package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v3"
)

func TestSimPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hal.yaml")
	if err := os.WriteFile(path, []byte("backend:\n  port: 5200\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		env  string
		args []string
		want int
	}{
		{"config file", "", []string{"hal", "--config", path, "sim"}, 5200},
		{"env overrides file", "5300", []string{"hal", "--config", path, "sim"}, 5300},
		{"flag wins", "5300", []string{"hal", "--config", path, "sim", "--port", "5400"}, 5400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HAL_API_PORT", tt.env)

			root := newRootCommand()
			got := 0
			for _, sub := range root.Commands {
				if sub.Name == "sim" {
					sub.Action = func(ctx context.Context, cmd *cli.Command) error {
						cfg, err := loadConfig(cmd)
						if err != nil {
							return err
						}
						got = simPort(cmd, cfg)
						return nil
					}
				}
			}

			if err := root.Run(context.Background(), tt.args); err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("port: got %d, want %d", got, tt.want)
			}
		})
	}
}
