// Command fetch-server serves the fetch tool over MCP stdio.
package main

import (
	"os"

	"github.com/effective-security/xlog"
	"github.com/suckgeun/mcp-sample/internal/appcli"
	"github.com/suckgeun/mcp-sample/mcp/server"
	"github.com/suckgeun/mcp-sample/tools/fetch"
	"github.com/urfave/cli/v2"
)

var logger = xlog.NewPackageLogger("github.com/suckgeun/mcp-sample", "fetch-server")

const appName = "fetch-server"

func main() {
	app := &cli.App{
		Name:    appName,
		Usage:   "MCP stdio server with the fetch tool",
		Version: appcli.Version,
		Flags: append(appcli.Flags(),
			&cli.StringFlag{
				Name:  "user-agent",
				Usage: "User-Agent header of the requests",
				Value: fetch.DefaultUserAgent,
			},
		),
		Action: run,
	}
	appcli.Exit(app.Run(os.Args))
}

func run(c *cli.Context) error {
	if _, err := appcli.Setup(c, os.Stderr); err != nil {
		return err
	}

	ctx, cancel := appcli.SignalContext(c.Context)
	defer cancel()

	tool := fetch.New().WithUserAgent(c.String("user-agent"))
	srv, err := server.New(server.Config{
		Name:         appName,
		Version:      appcli.Version,
		Instructions: "Fetches a URL from the internet and extracts its contents as text.",
	}, tool)
	if err != nil {
		return err
	}

	logger.KV(xlog.INFO, "status", "starting", "tool", tool.Name())
	return server.ServeStdio(ctx, srv)
}
