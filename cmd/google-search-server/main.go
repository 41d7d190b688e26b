// Command google-search-server serves the google_search tool over MCP stdio.
package main

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/suckgeun/mcp-sample/config"
	"github.com/suckgeun/mcp-sample/internal/appcli"
	"github.com/suckgeun/mcp-sample/mcp/server"
	"github.com/suckgeun/mcp-sample/tools/search"
	"github.com/suckgeun/mcp-sample/tools/search/googlecse"
	"github.com/suckgeun/mcp-sample/tools/search/tavily"
	"github.com/urfave/cli/v2"
)

var logger = xlog.NewPackageLogger("github.com/suckgeun/mcp-sample", "google-search-server")

const appName = "google-search-server"

func main() {
	app := &cli.App{
		Name:    appName,
		Usage:   "MCP stdio server with the google_search tool",
		Version: appcli.Version,
		Flags:   appcli.Flags(),
		Action:  run,
	}
	appcli.Exit(app.Run(os.Args))
}

func run(c *cli.Context) error {
	// stdout is the MCP channel
	cfg, err := appcli.Setup(c, os.Stderr)
	if err != nil {
		return err
	}
	if err = cfg.RequireSearchCredentials(); err != nil {
		return err
	}

	ctx, cancel := appcli.SignalContext(c.Context)
	defer cancel()

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}

	tool := search.New(backend,
		search.WithCount(cfg.Search.Count),
		search.WithLocale(cfg.Search.Country, cfg.Search.Language),
	)
	srv, err := server.New(server.Config{
		Name:         appName,
		Version:      appcli.Version,
		Instructions: search.Description,
	}, tool)
	if err != nil {
		return err
	}

	logger.KV(xlog.INFO, "status", "starting", "backend", backend.Name(), "count", cfg.Search.Count)
	return server.ServeStdio(ctx, srv)
}

func newBackend(ctx context.Context, cfg *config.Config) (search.Backend, error) {
	switch cfg.Search.Backend {
	case "", googlecse.BackendName:
		return googlecse.New(ctx)
	case tavily.BackendName:
		return tavily.New()
	}
	return nil, errors.Errorf("unsupported search backend: %s", cfg.Search.Backend)
}
