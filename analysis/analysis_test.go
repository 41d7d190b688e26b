package analysis_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suckgeun/mcp-sample/analysis"
	"github.com/suckgeun/mcp-sample/callbacks"
	"github.com/suckgeun/mcp-sample/mocks/mockllms"
	"github.com/suckgeun/mcp-sample/mocks/mocktools"
	"github.com/suckgeun/mcp-sample/pkg/llms"
	"github.com/suckgeun/mcp-sample/tools"
	"go.uber.org/mock/gomock"
)

type generateFunc func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error)

func completeReport() *analysis.Report {
	return &analysis.Report{
		CompanyName:      "株式会社サンプルAI",
		Products:         []string{"SampleVision"},
		CoreAlgorithms:   []string{"LLM", "RAG"},
		AITasks:          []string{"異常検知"},
		TargetProblems:   []string{"製造ラインの検査工数"},
		TargetIndustries: []string{"製造業"},
		ContractTypes:    []string{"SaaS"},
		ServiceDetails:   "画像から不良品を検出する検査サービス",
		Sources:          []string{"https://example.co.jp/about"},
	}
}

func toJSON(t *testing.T, v any) string {
	js, err := json.Marshal(v)
	require.NoError(t, err)
	return string(js)
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text}},
	}
}

func toolCallResponse(id, name, args string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			ToolCalls: []llms.ToolCall{{
				ID:           id,
				Type:         "function",
				FunctionCall: &llms.FunctionCall{Name: name, Arguments: args},
			}},
		}},
	}
}

// scripted returns the responses in order, and records the payloads
func scripted(t *testing.T, ctrl *gomock.Controller, responses ...*llms.ContentResponse) (*mockllms.MockModel, *[][]llms.Message) {
	model := mockllms.NewMockModel(ctrl)
	model.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()

	var payloads [][]llms.Message
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(generateFunc(func(_ context.Context, messages []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			payloads = append(payloads, messages)
			require.NotEmpty(t, responses, "unexpected model call")
			resp := responses[0]
			if len(responses) > 1 {
				responses = responses[1:]
			}
			return resp, nil
		})).
		AnyTimes()
	return model, &payloads
}

func TestAnalyze_CompleteOnFirstTurn(t *testing.T) {
	ctrl := gomock.NewController(t)
	model, payloads := scripted(t, ctrl,
		toolCallResponse("call_1", analysis.FinalAnswerToolName, toJSON(t, completeReport())),
	)

	stats := callbacks.NewStats()
	a := analysis.New(model, nil, analysis.WithCallback(stats))
	res, err := a.Analyze(context.Background(), "株式会社サンプルAI")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Iterations)
	assert.True(t, res.Complete)
	assert.Empty(t, res.Missing)
	assert.Equal(t, completeReport(), res.Report)
	require.Len(t, *payloads, 1)

	first := (*payloads)[0]
	require.Len(t, first, 2)
	assert.Equal(t, llms.RoleSystem, first[0].Role)
	assert.Contains(t, first[0].GetContent(), analysis.FinalAnswerToolName)
	assert.Equal(t, "株式会社サンプルAI\n", first[1].GetContent())

	// system, human, tool call, tool result
	require.Len(t, res.Messages, 4)
	assert.Equal(t, llms.RoleTool, res.Messages[3].Role)
	assert.Contains(t, res.Messages[3].GetContent(), "Report received")

	s := stats.Get()
	assert.Equal(t, uint32(1), s.LLMCalls)
	assert.Equal(t, uint32(1), s.ToolCalls)
	assert.Equal(t, uint32(1), s.Turns)
}

func TestAnalyze_JSONReply(t *testing.T) {
	ctrl := gomock.NewController(t)
	model, _ := scripted(t, ctrl,
		textResponse("最終報告書です。\n```json\n"+toJSON(t, completeReport())+"\n```"),
	)

	res, err := analysis.New(model, nil).Analyze(context.Background(), "株式会社サンプルAI")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Iterations)
	assert.True(t, res.Complete)
	assert.Equal(t, "株式会社サンプルAI", res.Report.CompanyName)
}

func TestAnalyze_IncompleteThenComplete(t *testing.T) {
	ctrl := gomock.NewController(t)

	search := mocktools.NewMockITool(ctrl)
	search.EXPECT().Name().Return("google_search").AnyTimes()
	search.EXPECT().Description().Return("search the web").AnyTimes()
	search.EXPECT().Parameters().Return(&jsonschema.Schema{Type: "object"}).AnyTimes()
	search.EXPECT().Call(gomock.Any(), `{"query":"サンプルAI"}`).Return("1. サンプルAI", nil).Times(1)

	partial := completeReport()
	partial.Sources = nil
	partial.ContractTypes = nil

	model, payloads := scripted(t, ctrl,
		toolCallResponse("call_1", "google_search", `{"query":"サンプルAI"}`),
		toolCallResponse("call_2", analysis.FinalAnswerToolName, toJSON(t, partial)),
		toolCallResponse("call_3", analysis.FinalAnswerToolName, toJSON(t, completeReport())),
	)

	res, err := analysis.New(model, []tools.ITool{search}).Analyze(context.Background(), "サンプルAI")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Iterations)
	assert.True(t, res.Complete)
	require.Len(t, *payloads, 3)

	last := (*payloads)[2]
	feedback := last[len(last)-1]
	assert.Equal(t, llms.RoleTool, feedback.Role)
	assert.Contains(t, feedback.GetContent(), "Missing fields: contract_types, sources")
}

func TestAnalyze_TextFollowUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	model, payloads := scripted(t, ctrl,
		textResponse("調査を開始します。"),
		toolCallResponse("call_1", analysis.FinalAnswerToolName, toJSON(t, completeReport())),
	)

	res, err := analysis.New(model, nil).Analyze(context.Background(), "サンプルAI")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Iterations)

	second := (*payloads)[1]
	followUp := second[len(second)-1]
	assert.Equal(t, llms.RoleHuman, followUp.Role)
	assert.Contains(t, followUp.GetContent(), "不足している項目: company_name, products")
	assert.Contains(t, followUp.GetContent(), analysis.FinalAnswerToolName)
}

func TestAnalyze_Stalled(t *testing.T) {
	ctrl := gomock.NewController(t)
	partial := completeReport()
	partial.Sources = nil

	model, payloads := scripted(t, ctrl,
		toolCallResponse("call_1", analysis.FinalAnswerToolName, toJSON(t, partial)),
	)

	res, err := analysis.New(model, nil, analysis.WithMaxStalled(2)).Analyze(context.Background(), "サンプルAI")
	require.Error(t, err)
	assert.True(t, errors.Is(err, analysis.ErrStalled))
	assert.Equal(t, "missing fields sources reported 2 times: analysis stalled", err.Error())

	assert.Len(t, *payloads, 2)
	assert.Equal(t, 2, res.Iterations)
	assert.False(t, res.Complete)
	assert.Equal(t, []string{"sources"}, res.Missing)
	assert.Equal(t, partial, res.Report)
}

func TestAnalyze_IterationLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	model, payloads := scripted(t, ctrl,
		toolCallResponse("call_1", "google_search", `{"query":"サンプルAI"}`),
	)

	res, err := analysis.New(model, nil, analysis.WithMaxIterations(3)).Analyze(context.Background(), "サンプルAI")
	require.Error(t, err)
	assert.True(t, errors.Is(err, analysis.ErrIterationLimit))
	assert.Len(t, *payloads, 3)
	assert.Equal(t, 3, res.Iterations)
	assert.Nil(t, res.Report)
	assert.Equal(t, analysis.RequiredFields(), res.Missing)

	// unknown tools are reported back to the model
	last := res.Messages[len(res.Messages)-1]
	require.Len(t, last.Parts, 1)
	result, ok := last.Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "call_1", result.ToolCallID)
	assert.Contains(t, result.Content, `Tool "google_search" is not available`)
}

func TestAnalyze_KeepsBestReport(t *testing.T) {
	ctrl := gomock.NewController(t)
	partial := completeReport()
	partial.ServiceDetails = ""

	model, _ := scripted(t, ctrl,
		toolCallResponse("call_1", analysis.FinalAnswerToolName, toJSON(t, partial)),
		textResponse(`Still researching {"company_name":"x"}`),
	)

	res, err := analysis.New(model, nil,
		analysis.WithMaxIterations(3),
		analysis.WithMaxStalled(10),
	).Analyze(context.Background(), "サンプルAI")
	require.Error(t, err)
	assert.True(t, errors.Is(err, analysis.ErrIterationLimit))
	assert.Equal(t, partial, res.Report)
	assert.Equal(t, []string{"service_details"}, res.Missing)
}

func TestAnalyze_ModelError(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := mockllms.NewMockModel(ctrl)
	model.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	model.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection refused")).
		Times(1)

	res, err := analysis.New(model, nil).Analyze(context.Background(), "サンプルAI")
	require.Error(t, err)
	assert.Equal(t, "failed to generate content from LLM: connection refused", err.Error())
	assert.Equal(t, 0, res.Iterations)
}

func TestAnalyze_EmptyCompany(t *testing.T) {
	ctrl := gomock.NewController(t)
	model := mockllms.NewMockModel(ctrl)

	_, err := analysis.New(model, nil).Analyze(context.Background(), "  ")
	require.Error(t, err)
	assert.Equal(t, "company name is required", err.Error())
}

func TestSystemPrompt(t *testing.T) {
	sys, err := analysis.SystemPrompt()
	require.NoError(t, err)
	assert.Contains(t, sys, "戦略コンサルタント")
	assert.Contains(t, sys, "final_answer ツールで提出する")
	assert.Contains(t, sys, "Respond with JSON in the following JSON schema")
	assert.Contains(t, sys, `"company_name"`)
	assert.False(t, strings.Contains(sys, "{{"))
}
