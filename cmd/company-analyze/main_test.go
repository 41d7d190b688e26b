package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suckgeun/mcp-sample/analysis"
)

func TestReadCompany(t *testing.T) {
	var out bytes.Buffer
	company, err := readCompany(strings.NewReader("  株式会社サンプルAI \n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "株式会社サンプルAI", company)
	assert.Equal(t, "You: ", out.String())

	for _, in := range []string{"", "\n", "quit\n"} {
		_, err = readCompany(strings.NewReader(in), &out)
		require.Error(t, err)
		assert.Equal(t, "company name is required", err.Error())
	}
}

func TestReportEncoder(t *testing.T) {
	report := &analysis.Report{CompanyName: "株式会社サンプルAI"}

	enc, err := reportEncoder("yml", true)
	require.NoError(t, err)
	out, err := enc.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(out), "# 会社名\ncompany_name: 株式会社サンプルAI\n")

	enc, err = reportEncoder("yaml", false)
	require.NoError(t, err)
	out, err = enc.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(out), "company_name: 株式会社サンプルAI\n")
	assert.NotContains(t, string(out), "#")

	enc, err = reportEncoder("json", true)
	require.NoError(t, err)
	out, err = enc.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"company_name"`)
	assert.NotContains(t, string(out), "#")

	_, err = reportEncoder("xml", false)
	assert.EqualError(t, err, `unsupported format "xml": use one of json, yaml, toml, text`)
}
