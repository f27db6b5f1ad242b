package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"

	"github.com/teslashibe/go-hal/internal/config"
	"github.com/teslashibe/go-hal/pkg/web"
)

func newWatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Follow a running display's status stream",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Dashboard host:port",
				Value: fmt.Sprintf("127.0.0.1:%d", config.DefaultDashboardPort),
			},
		},
		Action: runWatch,
	}
}

type streamEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	u := url.URL{Scheme: "ws", Host: cmd.String("addr"), Path: "/ws/status"}

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", u.String(), err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	}()

	fmt.Printf("watching %s\n", u.String())
	var last string
	for {
		var ev streamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		switch ev.Type {
		case "status":
			var st web.StatusView
			if err := json.Unmarshal(ev.Data, &st); err != nil {
				continue
			}
			line := fmt.Sprintf("%-4s %-16s %s", st.Mode, st.State, st.Label)
			if line != last {
				fmt.Printf("%s  %s\n", time.Now().Format("15:04:05"), line)
				last = line
			}
		case "event":
			var e web.Event
			if err := json.Unmarshal(ev.Data, &e); err == nil {
				fmt.Printf("%s  [%s] %s\n", e.Time.Format("15:04:05"), e.Type, e.Message)
			}
		}
	}
}
