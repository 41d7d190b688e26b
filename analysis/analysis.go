package analysis

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/suckgeun/mcp-sample/encoding"
	"github.com/suckgeun/mcp-sample/host"
	"github.com/suckgeun/mcp-sample/pkg/llms"
	"github.com/suckgeun/mcp-sample/pkg/metricskey"
	"github.com/suckgeun/mcp-sample/tools"
)

var logger = xlog.NewPackageLogger("github.com/suckgeun/mcp-sample", "analysis")

const (
	// DefaultName is the host name used in logs and metrics
	DefaultName = "analysis"
	// DefaultMaxIterations is the limit of model calls
	DefaultMaxIterations = 20
	// DefaultMaxStalled is the limit of consecutive submissions with the same missing fields
	DefaultMaxStalled = 3
)

var (
	// ErrIterationLimit is returned when the report is not complete after the max iterations.
	ErrIterationLimit = errors.New("analysis iteration limit reached")
	// ErrStalled is returned when the model keeps reporting the same missing fields.
	ErrStalled = errors.New("analysis stalled")
)

// Option configures the Analyzer
type Option func(*Analyzer)

// WithName sets the host name, used in logs, metrics and callbacks.
func WithName(name string) Option {
	return func(a *Analyzer) {
		a.name = name
	}
}

// WithModel sets the model name passed in the call options.
func WithModel(model string) Option {
	return func(a *Analyzer) {
		a.model = model
	}
}

// WithCallback sets the callback.
func WithCallback(cb host.Callback) Option {
	return func(a *Analyzer) {
		a.callback = cb
	}
}

// WithMaxIterations sets the limit of model calls.
func WithMaxIterations(n int) Option {
	return func(a *Analyzer) {
		a.maxIterations = n
	}
}

// WithMaxStalled sets how many consecutive times the same missing fields
// may be reported before the analysis stops.
func WithMaxStalled(n int) Option {
	return func(a *Analyzer) {
		a.maxStalled = n
	}
}

// Analyzer runs the company analysis.
type Analyzer struct {
	llm      llms.Model
	tools    []tools.ITool
	callback host.Callback

	name          string
	model         string
	maxIterations int
	maxStalled    int
}

// Result is the outcome of Analyze.
// On ErrIterationLimit and ErrStalled it holds the best partial report.
type Result struct {
	Company    string
	Report     *Report
	Complete   bool
	Iterations int
	Missing    []string
	Messages   []llms.Message
}

// New returns the analyzer with the research tools.
func New(llm llms.Model, list []tools.ITool, opts ...Option) *Analyzer {
	a := &Analyzer{
		llm:   llm,
		tools: list,
		name:  DefaultName,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.maxIterations = values.NumbersCoalesce(a.maxIterations, DefaultMaxIterations)
	a.maxStalled = values.NumbersCoalesce(a.maxStalled, DefaultMaxStalled)
	return a
}

// SystemPrompt returns the instructions for the model.
func SystemPrompt() (string, error) {
	instructions := ""
	if enc, err := encoding.PredefinedSchemaEncoder(encoding.ModeJSON, Report{}); err == nil {
		instructions = enc.GetFormatInstructions()
	}
	return systemPrompt.WithPartial("final_tool", FinalAnswerToolName).Format(map[string]any{
		"format_instructions": instructions,
	})
}

// Analyze researches the company until the model submits a complete report.
func (a *Analyzer) Analyze(ctx context.Context, company string) (*Result, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return nil, errors.New("company name is required")
	}

	started := time.Now()
	if a.callback != nil {
		a.callback.OnTurnStart(ctx, a.name, company)
	}

	res, err := a.analyze(ctx, company)

	status := "complete"
	if err != nil {
		status = "failed"
		if errors.Is(err, ErrIterationLimit) {
			status = "iteration_limit"
		} else if errors.Is(err, ErrStalled) {
			status = "stalled"
		}
	}
	metricskey.PerfAnalysisRun.MeasureSince(started, status)
	logger.ContextKV(ctx, xlog.INFO,
		"host", a.name,
		"status", status,
		"company", company,
		"iterations", res.Iterations,
		"missing", res.Missing,
	)

	if a.callback != nil {
		if err != nil {
			a.callback.OnTurnError(ctx, a.name, company, err)
		} else {
			a.callback.OnTurnEnd(ctx, a.name, company, res.Report.CompanyName, res.Messages)
		}
	}
	return res, err
}

func (a *Analyzer) analyze(ctx context.Context, company string) (*Result, error) {
	res := &Result{Company: company}

	final := NewFinalAnswer()
	// the submission tool is registered first, so a remote tool can not shadow it
	registry := tools.NewRegistry(append([]tools.ITool{final}, a.tools...)...)

	sys, err := SystemPrompt()
	if err != nil {
		return res, errors.WithMessage(err, "failed to format system prompt")
	}

	var opts []llms.CallOption
	if a.model != "" {
		opts = append(opts, llms.WithModel(a.model))
	}
	opts = append(opts, llms.WithTools(registry.Definitions()))

	messages := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, sys),
		llms.MessageFromTextParts(llms.RoleHuman, company),
	}

	finish := func(err error) (*Result, error) {
		res.Messages = messages
		res.Report = final.Report()
		res.Missing = res.Report.Missing()
		res.Complete = len(res.Missing) == 0
		return res, err
	}

	var (
		lastKey string
		stalled int
	)
	for iter := 1; iter <= a.maxIterations; iter++ {
		resp, err := host.Generate(ctx, a.name, a.llm, a.callback, messages, opts...)
		if err != nil {
			return finish(err)
		}
		res.Iterations = iter
		metricskey.StatsAnalysisIterations.IncrCounter(1, "running")

		choice := resp.Choices[0]
		var (
			reported bool
			missing  []string
		)
		if len(choice.ToolCalls) > 0 {
			before := final.Submitted()
			messages = append(messages, host.ExecuteToolCalls(ctx, a.name, registry, a.callback, choice)...)
			if final.Submitted() > before {
				missing = final.Report().Missing()
				reported = true
			}
		} else {
			messages = append(messages, llms.MessageFromTextParts(llms.RoleAI, choice.Content))
			if r := parseReport(choice.Content); r != nil {
				final.Submit(r)
			}
			missing = final.Report().Missing()
			reported = true
			if len(missing) > 0 {
				msg, err := followUpPrompt.FormatMessage(llms.RoleHuman, map[string]any{
					"missing":    missing,
					"final_tool": FinalAnswerToolName,
				})
				if err != nil {
					return finish(errors.WithMessage(err, "failed to format follow-up"))
				}
				messages = append(messages, msg)
			}
		}

		if reported && len(missing) == 0 {
			return finish(nil)
		}

		logger.ContextKV(ctx, xlog.DEBUG,
			"host", a.name,
			"status", "iteration",
			"iteration", iter,
			"tool_calls", len(choice.ToolCalls),
			"missing", missing,
		)

		if reported {
			key := missingKey(missing)
			if key == lastKey {
				stalled++
			} else {
				lastKey = key
				stalled = 1
			}
			if stalled >= a.maxStalled {
				return finish(errors.Wrapf(ErrStalled, "missing fields %s reported %d times", strings.Join(missing, ", "), stalled))
			}
		}
	}
	return finish(errors.Wrapf(ErrIterationLimit, "%d iterations", a.maxIterations))
}

// parseReport returns the report from a text reply,
// or nil if the reply has no JSON report with at least one field filled.
func parseReport(text string) *Report {
	if !strings.Contains(text, "{") {
		return nil
	}
	parser, err := encoding.NewTypedOutputParser(Report{}, encoding.ModeJSON)
	if err != nil {
		return nil
	}
	// a partial report is kept, completeness is checked by Missing
	r, err := parser.WithValidation(false).Parse(text)
	if err != nil || len(r.Missing()) == len(RequiredFields()) {
		return nil
	}
	return r
}
