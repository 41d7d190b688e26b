// Package appcli holds the flags and the startup sequence shared by the binaries.
package appcli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/suckgeun/mcp-sample/config"
	"github.com/urfave/cli/v2"
)

var logger = xlog.NewPackageLogger("github.com/suckgeun/mcp-sample", "appcli")

// Version is set at build time
var Version = "dev"

// Flag names
const (
	FlagConfig   = "config"
	FlagLogLevel = "log-level"
	FlagEnvFile  = "env-file"
)

var levels = map[string]xlog.LogLevel{
	"TRACE":    xlog.TRACE,
	"DEBUG":    xlog.DEBUG,
	"INFO":     xlog.INFO,
	"NOTICE":   xlog.NOTICE,
	"WARNING":  xlog.WARNING,
	"WARN":     xlog.WARNING,
	"ERROR":    xlog.ERROR,
	"CRITICAL": xlog.CRITICAL,
}

// Flags returns the flags every binary accepts.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    FlagConfig,
			Aliases: []string{"c"},
			Usage:   "path to the YAML config file, defaults are used if not set",
			EnvVars: []string{"MCP_SAMPLE_CONFIG"},
		},
		&cli.StringFlag{
			Name:  FlagLogLevel,
			Usage: "log level: TRACE|DEBUG|INFO|NOTICE|WARNING|ERROR, overrides the config",
		},
		&cli.StringSliceFlag{
			Name:  FlagEnvFile,
			Usage: "dotenv files to load, the variables already set are kept",
			Value: cli.NewStringSlice(".env"),
		},
	}
}

// ParseLogLevel returns the level by its name, case insensitive.
func ParseLogLevel(s string) (xlog.LogLevel, error) {
	l, ok := levels[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return xlog.INFO, errors.Errorf("invalid log level: %q", s)
	}
	return l, nil
}

// Setup loads the dotenv files and the config, and directs the logs to w.
// The binaries pass stderr, so stdout carries only the transcript or the MCP stream.
func Setup(c *cli.Context, w io.Writer) (*config.Config, error) {
	if err := config.LoadDotEnv(c.StringSlice(FlagEnvFile)...); err != nil {
		return nil, err
	}

	cfg, err := config.Load(c.String(FlagConfig))
	if err != nil {
		return nil, err
	}

	level, err := ParseLogLevel(values.StringsCoalesce(c.String(FlagLogLevel), cfg.LogLevel))
	if err != nil {
		return nil, err
	}
	xlog.SetFormatter(xlog.NewStringFormatter(w))
	xlog.SetGlobalLogLevel(level)

	logger.KV(xlog.DEBUG,
		"status", "configured",
		"app", c.App.Name,
		"config", c.String(FlagConfig),
		"log_level", level,
	)
	return cfg, nil
}

// SignalContext returns the context cancelled on interrupt.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Exit prints the error to stderr, and exits with non zero code.
func Exit(err error) {
	if err == nil {
		return
	}
	_, _ = io.WriteString(os.Stderr, "error: "+err.Error()+"\n")
	os.Exit(1)
}
