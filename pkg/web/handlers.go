package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-hal/pkg/display"
	"github.com/teslashibe/go-hal/pkg/hub"
)

// StatusView is the JSON shape of a render state on the dashboard.
type StatusView struct {
	display.RenderState
	Label string `json:"label"`
}

func statusView(rs display.RenderState) StatusView {
	return StatusView{RenderState: rs, Label: rs.Label()}
}

// DisplayResponse is returned by GET /api/display.
type DisplayResponse struct {
	Instance string     `json:"instance"`
	Uptime   string     `json:"uptime"`
	Status   StatusView `json:"status"`
	Stats    any        `json:"stats,omitempty"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"instance": s.instance,
	})
}

func (s *Server) handleDisplay(c *fiber.Ctx) error {
	return c.JSON(DisplayResponse{
		Instance: s.instance,
		Uptime:   time.Since(s.started).Truncate(time.Second).String(),
		Status:   statusView(s.provider.RenderState()),
		Stats:    s.provider.Stats(),
	})
}

func (s *Server) handleFrame(c *fiber.Ctx) error {
	data, err := s.provider.FrameJPEG()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(data)
}

func (s *Server) handleEvents(c *fiber.Ctx) error {
	return c.JSON(s.Events())
}

func (s *Server) handleStatusWS(c *websocket.Conn) {
	hub.NewClient(s.statusHub, c).Run()
}

func (s *Server) handlePanelWS(c *websocket.Conn) {
	hub.NewClient(s.panelHub, c).Run()
}
