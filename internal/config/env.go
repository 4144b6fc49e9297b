// Package config provides configuration helpers for go-auton commands.
package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults used when the matching environment variable is unset.
const (
	DefaultDashboardAddr = ":8080"
	DefaultLimelightURL  = "http://limelight.local:5807"
	DefaultSerialBaud    = 115200
	DefaultLoopPeriod    = 20 * time.Millisecond
)

// DashboardAddr returns the dashboard listen address from AUTON_DASHBOARD_ADDR.
func DashboardAddr() string {
	return envOr("AUTON_DASHBOARD_ADDR", DefaultDashboardAddr)
}

// LimelightURL returns the vision coprocessor base URL from AUTON_LIMELIGHT_URL.
func LimelightURL() string {
	return envOr("AUTON_LIMELIGHT_URL", DefaultLimelightURL)
}

// SerialPort returns the hub serial port from AUTON_SERIAL_PORT.
// Empty means no hardware bridge.
func SerialPort() string {
	return os.Getenv("AUTON_SERIAL_PORT")
}

// LogLevel returns the log level from AUTON_LOG_LEVEL.
func LogLevel() string {
	return envOr("AUTON_LOG_LEVEL", "info")
}

// LoopPeriod returns the control loop period from AUTON_LOOP_PERIOD
// (a Go duration string). Invalid values fall back to the default.
func LoopPeriod() time.Duration {
	if v := os.Getenv("AUTON_LOOP_PERIOD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return DefaultLoopPeriod
}

// SerialBaud returns the serial baud rate from AUTON_SERIAL_BAUD.
func SerialBaud() int {
	if v := os.Getenv("AUTON_SERIAL_BAUD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultSerialBaud
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
