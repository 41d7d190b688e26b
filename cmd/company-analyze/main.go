// Command company-analyze researches a company with the search and fetch tools,
// and prints the report.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/fatih/color"
	"github.com/suckgeun/mcp-sample/analysis"
	"github.com/suckgeun/mcp-sample/callbacks"
	"github.com/suckgeun/mcp-sample/encoding"
	yamlenc "github.com/suckgeun/mcp-sample/encoding/yaml"
	"github.com/suckgeun/mcp-sample/host"
	"github.com/suckgeun/mcp-sample/internal/appcli"
	"github.com/suckgeun/mcp-sample/mcp/client"
	"github.com/suckgeun/mcp-sample/pkg/llmfactory"
	"github.com/urfave/cli/v2"
)

var logger = xlog.NewPackageLogger("github.com/suckgeun/mcp-sample", "company-analyze")

const appName = "company-analyze"

func main() {
	app := &cli.App{
		Name:      appName,
		Usage:     "research a company and print the report",
		ArgsUsage: "[company name]",
		Version:   appcli.Version,
		Flags: append(appcli.Flags(),
			&cli.StringFlag{
				Name:  "format",
				Usage: "report format: yaml|json|toml|text",
				Value: encoding.ModeYAML,
			},
			&cli.BoolFlag{
				Name:  "comments",
				Usage: "annotate the yaml report with the field descriptions",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "print the tool outputs",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "do not print the trace",
			},
		),
		Action: run,
	}
	appcli.Exit(app.Run(os.Args))
}

func run(c *cli.Context) error {
	cfg, err := appcli.Setup(c, os.Stderr)
	if err != nil {
		return err
	}
	if err = cfg.RequireLLMCredentials(); err != nil {
		return err
	}

	enc, err := reportEncoder(c.String("format"), c.Bool("comments"))
	if err != nil {
		return err
	}

	ctx, cancel := appcli.SignalContext(c.Context)
	defer cancel()

	company := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if company == "" {
		if company, err = readCompany(os.Stdin, os.Stdout); err != nil {
			return err
		}
	}

	llm, err := llmfactory.New(&cfg.LLM).HostModel(analysis.DefaultName)
	if err != nil {
		return err
	}

	mc, err := client.Start(ctx, appName, appcli.Version, cfg.Providers)
	if err != nil {
		return err
	}
	defer func() {
		_ = mc.Close()
	}()
	for _, line := range mc.Describe() {
		fmt.Fprintln(os.Stdout, line)
	}

	stats := callbacks.NewStats()
	cb := callbacks.NewFanout(callbacks.NewPackageLogger(logger), stats)
	if !c.Bool("quiet") {
		mode := callbacks.ModeDefault
		if c.Bool("verbose") {
			mode = callbacks.ModeVerbose
		}
		cb.Add(callbacks.NewPrinter(os.Stdout, mode))
	}

	a := analysis.New(llm, mc.Tools(),
		analysis.WithCallback(cb),
		analysis.WithMaxIterations(cfg.Analysis.MaxIterations),
		analysis.WithMaxStalled(cfg.Analysis.MaxStalled),
	)

	res, err := a.Analyze(ctx, company)
	defer stats.Print(os.Stderr)
	if res == nil || res.Report == nil {
		return err
	}

	if !res.Complete {
		fmt.Fprintln(os.Stdout, color.New(color.FgYellow, color.Bold).Sprintf(
			"Partial report after %d iterations, missing: %s", res.Iterations, strings.Join(res.Missing, ", ")))
	}

	out, merr := enc.Marshal(res.Report)
	if merr != nil {
		return errors.CombineErrors(err, merr)
	}
	fmt.Fprintln(os.Stdout, strings.TrimSpace(string(out)))
	return err
}

// reportEncoder returns the encoder of the report,
// YAML fields are preceded by their description when comments is set.
func reportEncoder(format string, comments bool) (encoding.SchemaEncoder, error) {
	mode, err := encoding.ParseMode(format)
	if err != nil {
		return nil, err
	}
	if comments && mode == encoding.ModeYAML {
		return yamlenc.NewEncoder(analysis.Report{}).WithCommentStyle(yamlenc.HeadComment), nil
	}
	return encoding.PredefinedSchemaEncoder(mode, analysis.Report{})
}

// readCompany asks for the company name once.
func readCompany(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, host.PromptUser)
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", errors.Wrap(err, "failed to read input")
		}
		return "", errors.New("company name is required")
	}
	company := strings.TrimSpace(scanner.Text())
	if company == "" || host.IsExitCommand(company) {
		return "", errors.New("company name is required")
	}
	return company, nil
}
