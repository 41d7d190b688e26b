package analysis

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/suckgeun/mcp-sample/pkg/schema"
	"github.com/suckgeun/mcp-sample/tools"
)

// FinalAnswerToolName is the name of the report submission tool
const FinalAnswerToolName = "final_answer"

var reportSchema = schema.MustNew(reflect.TypeOf(Report{}))

// Submission is the outcome of a report submission.
type Submission struct {
	Accepted bool
	Missing  []string
}

func (s *Submission) String() string {
	if s.Accepted {
		return "Report received. The analysis is complete."
	}
	return fmt.Sprintf("Report incomplete. Missing fields: %s. Research them and call %s again with the full report.",
		strings.Join(s.Missing, ", "), FinalAnswerToolName)
}

// FinalAnswer is the tool the model calls to submit the report.
// It keeps the best submitted report: the one with the fewest missing fields,
// on a tie the latest one.
type FinalAnswer struct {
	lock      sync.Mutex
	report    *Report
	missing   int
	submitted int
}

var _ tools.Tool[Report, Submission] = (*FinalAnswer)(nil)

func NewFinalAnswer() *FinalAnswer {
	return &FinalAnswer{}
}

func (t *FinalAnswer) Name() string {
	return FinalAnswerToolName
}

func (t *FinalAnswer) Description() string {
	return "Submit the final company report. Call it only when every field is researched, with the source URLs."
}

func (t *FinalAnswer) Parameters() *jsonschema.Schema {
	return reportSchema.Parameters
}

func (t *FinalAnswer) Call(ctx context.Context, input string) (string, error) {
	var req Report
	if err := tools.DecodeInput(input, &req); err != nil {
		return "", err
	}
	res, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

// Run records the report and reports the missing fields.
func (t *FinalAnswer) Run(_ context.Context, req *Report) (*Submission, error) {
	t.Submit(req)
	missing := req.Missing()
	return &Submission{
		Accepted: len(missing) == 0,
		Missing:  missing,
	}, nil
}

// Submit records the report, and returns false if an earlier report is better.
func (t *FinalAnswer) Submit(r *Report) bool {
	missing := len(r.Missing())

	t.lock.Lock()
	defer t.lock.Unlock()
	t.submitted++
	if t.report != nil && missing > t.missing {
		return false
	}
	t.report = r
	t.missing = missing
	return true
}

// Report returns the best submitted report, or nil.
func (t *FinalAnswer) Report() *Report {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.report
}

// Submitted returns the number of submissions.
func (t *FinalAnswer) Submitted() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.submitted
}
