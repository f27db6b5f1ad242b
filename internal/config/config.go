// Package config loads go-hal settings from a file, the environment and defaults.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Default backend and panel configuration.
const (
	DefaultAPIHost = "127.0.0.1"
	DefaultAPIPort = 5000

	DefaultPanelWidth  = 480
	DefaultPanelHeight = 480

	DefaultMaxFrameBytes = 200000
	DefaultDashboardPort = 8090
)

// Backend endpoint paths.
const (
	StatusPath = "/api/hal/display"
	FramePath  = "/api/hal/face_frame"
)

// Config is the root configuration.
type Config struct {
	Backend   BackendConfig   `yaml:"backend" json:"backend"`
	Intervals IntervalsConfig `yaml:"intervals" json:"intervals"`
	Face      FaceConfig      `yaml:"face" json:"face"`
	Panel     PanelConfig     `yaml:"panel" json:"panel"`
	Dashboard DashboardConfig `yaml:"dashboard" json:"dashboard"`
	States    StatesConfig    `yaml:"states" json:"states"`
	Log       LogConfig       `yaml:"log" json:"log"`
}

// BackendConfig points at the HAL backend serving the display endpoints.
type BackendConfig struct {
	Host          string   `yaml:"host" json:"host"`
	Port          int      `yaml:"port" json:"port"`
	StatusTimeout Duration `yaml:"status_timeout" json:"status_timeout"`
	FrameTimeout  Duration `yaml:"frame_timeout" json:"frame_timeout"`
}

// IntervalsConfig holds the three scheduler periods.
type IntervalsConfig struct {
	Poll  Duration `yaml:"poll" json:"poll"`   // status poll
	Frame Duration `yaml:"frame" json:"frame"` // face frame fetch, face mode only
	Eye   Duration `yaml:"eye" json:"eye"`     // eye animation / compose
}

// FaceConfig controls face frame requests.
type FaceConfig struct {
	Enabled       bool `yaml:"enabled" json:"enabled"`
	Red           bool `yaml:"red" json:"red"`
	Size          int  `yaml:"size" json:"size"`
	MaxFrameBytes int  `yaml:"max_frame_bytes" json:"max_frame_bytes"`
}

// PanelConfig describes the output surface.
type PanelConfig struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`

	// Driver selects an extra physical panel: "" / "none" or "ssd1306".
	Driver string `yaml:"driver" json:"driver"`
	I2CBus string `yaml:"i2c_bus" json:"i2c_bus"`
}

// DashboardConfig controls the preview dashboard.
type DashboardConfig struct {
	Enabled       bool     `yaml:"enabled" json:"enabled"`
	Port          int      `yaml:"port" json:"port"`
	FrameInterval Duration `yaml:"frame_interval" json:"frame_interval"`
}

// StatesConfig controls status string classification.
type StatesConfig struct {
	// Strict uses the closed set of backend state codes instead of substrings.
	Strict bool `yaml:"strict" json:"strict"`
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default returns the configuration matching the original firmware timings.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			Host:          DefaultAPIHost,
			Port:          DefaultAPIPort,
			StatusTimeout: Duration(2 * time.Second),
			FrameTimeout:  Duration(3 * time.Second),
		},
		Intervals: IntervalsConfig{
			Poll:  Duration(time.Second),
			Frame: Duration(200 * time.Millisecond),
			Eye:   Duration(33 * time.Millisecond),
		},
		Face: FaceConfig{
			Enabled:       true,
			Red:           true,
			Size:          DefaultPanelWidth,
			MaxFrameBytes: DefaultMaxFrameBytes,
		},
		Panel: PanelConfig{
			Width:  DefaultPanelWidth,
			Height: DefaultPanelHeight,
			I2CBus: "",
		},
		Dashboard: DashboardConfig{
			Enabled:       false,
			Port:          DefaultDashboardPort,
			FrameInterval: Duration(200 * time.Millisecond),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// BaseURL returns the backend root URL, e.g. http://127.0.0.1:5000.
func (c *Config) BaseURL() string {
	return "http://" + net.JoinHostPort(c.Backend.Host, strconv.Itoa(c.Backend.Port))
}

// StatusURL returns the display status endpoint.
func (c *Config) StatusURL() string {
	return c.BaseURL() + StatusPath
}

// FrameURL returns the face frame endpoint with its query parameters.
func (c *Config) FrameURL() string {
	q := url.Values{}
	q.Set("red", strconv.FormatBool(c.Face.Red))
	q.Set("size", strconv.Itoa(c.Face.Size))
	return c.BaseURL() + FramePath + "?" + q.Encode()
}

// Validate checks that values are within usable ranges.
// Returns a list of problems, or nil if valid.
func (c *Config) Validate() []string {
	var problems []string

	if c.Backend.Host == "" {
		problems = append(problems, "backend.host is required")
	}
	if c.Backend.Port < 1 || c.Backend.Port > 65535 {
		problems = append(problems, "backend.port must be between 1 and 65535")
	}
	if c.Backend.StatusTimeout <= 0 {
		problems = append(problems, "backend.status_timeout must be positive")
	}
	if c.Backend.FrameTimeout <= 0 {
		problems = append(problems, "backend.frame_timeout must be positive")
	}

	if c.Intervals.Poll <= 0 || c.Intervals.Frame <= 0 || c.Intervals.Eye <= 0 {
		problems = append(problems, "intervals must be positive")
	}

	if c.Face.Size < 16 || c.Face.Size > 1024 {
		problems = append(problems, "face.size must be between 16 and 1024")
	}
	if c.Face.MaxFrameBytes <= 0 {
		problems = append(problems, "face.max_frame_bytes must be positive")
	}

	if c.Panel.Width <= 0 || c.Panel.Height <= 0 {
		problems = append(problems, "panel.width and panel.height must be positive")
	}
	switch c.Panel.Driver {
	case "", "none", "ssd1306":
	default:
		problems = append(problems, fmt.Sprintf("panel.driver %q is not supported (none, ssd1306)", c.Panel.Driver))
	}

	if c.Dashboard.Enabled && (c.Dashboard.Port < 1 || c.Dashboard.Port > 65535) {
		problems = append(problems, "dashboard.port must be between 1 and 65535")
	}

	return problems
}
