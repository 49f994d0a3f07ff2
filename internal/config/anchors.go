// Package config provides configuration helpers for go-anchors commands.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Default configuration.
const (
	DefaultLogLevel      = "info"
	DefaultModelPath     = "models/yolov8n.onnx"
	DefaultDashboardPort = "8090"
)

// LogLevel returns the log level from ANCHORS_LOG_LEVEL or the default.
func LogLevel() string {
	if lvl := os.Getenv("ANCHORS_LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return DefaultLogLevel
}

// ModelPath returns the ONNX model path from ANCHORS_MODEL_PATH.
// Falls back to the provided default if not set.
func ModelPath(defaultPath string) string {
	if p := os.Getenv("ANCHORS_MODEL_PATH"); p != "" {
		return p
	}
	return defaultPath
}

// DashboardPort returns the dashboard port from ANCHORS_DASHBOARD_PORT or default.
func DashboardPort() string {
	if port := os.Getenv("ANCHORS_DASHBOARD_PORT"); port != "" {
		return port
	}
	return DefaultDashboardPort
}

// DashboardURL returns the websocket URL of the marker stream.
// ANCHORS_DASHBOARD_URL wins over the host/port pair.
func DashboardURL(host string) string {
	if u := os.Getenv("ANCHORS_DASHBOARD_URL"); u != "" {
		return u
	}
	return fmt.Sprintf("ws://%s:%s/ws/markers", host, DashboardPort())
}

// Float returns a float from the named env var, or def when unset or invalid.
func Float(name string, def float64) float64 {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// DashboardAPI returns the base URL of the dashboard HTTP API.
// ANCHORS_DASHBOARD_API wins over the host/port pair.
func DashboardAPI(host string) string {
	if u := os.Getenv("ANCHORS_DASHBOARD_API"); u != "" {
		return strings.TrimRight(u, "/")
	}
	return fmt.Sprintf("http://%s:%s/api", host, DashboardPort())
}
