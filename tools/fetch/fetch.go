// Package fetch implements the fetch tool: it retrieves a URL and returns
// its content as readable text, in windows of max_length characters.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"
	"github.com/suckgeun/mcp-sample/chatmodel"
	"github.com/suckgeun/mcp-sample/pkg/schema"
	"github.com/suckgeun/mcp-sample/tools"
)

var logger = xlog.NewPackageLogger("github.com/suckgeun/mcp-sample", "fetch")

const (
	// ToolName is the name of the fetch tool
	ToolName = "fetch"
	// Description is the tool description
	Description = "Fetches a URL from the internet and extracts its contents as text. " +
		"Use start_index to continue reading a long page."

	// DefaultMaxLength is the default number of characters returned per call.
	DefaultMaxLength = 5000
	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "Mozilla/5.0 (compatible; mcp-sample-fetch/1.0)"

	maxBodySize = 5 << 20
)

// Input represents the tool input.
type Input struct {
	URL        string `json:"url" yaml:"url" jsonschema:"title=url,description=URL to fetch."`
	MaxLength  int    `json:"max_length,omitempty" yaml:"max_length,omitempty" jsonschema:"title=max_length,description=Maximum number of characters to return. Default 5000."`
	StartIndex int    `json:"start_index,omitempty" yaml:"start_index,omitempty" jsonschema:"title=start_index,description=Return output starting at this character index. Default 0."`
	Raw        bool   `json:"raw,omitempty" yaml:"raw,omitempty" jsonschema:"title=raw,description=Get the raw content of the page without simplification."`
}

// Output represents the tool output.
type Output struct {
	URL         string `json:"url" yaml:"url"`
	ContentType string `json:"content_type" yaml:"content_type"`
	Content     string `json:"content" yaml:"content"`
	// NextIndex is set when the content was truncated.
	NextIndex int `json:"next_index,omitempty" yaml:"next_index,omitempty"`
	// Remaining is set when start_index is beyond the content.
	Remaining bool `json:"-" yaml:"-"`
}

// String returns the text returned to the model.
func (o *Output) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Contents of %s:\n", o.URL)
	if o.Content == "" && !o.Remaining {
		buf.WriteString("<error>No more content available.</error>")
		return buf.String()
	}
	buf.WriteString(o.Content)
	if o.NextIndex > 0 {
		fmt.Fprintf(&buf, "\n\n<error>Content truncated. Call the fetch tool with a start_index of %d to get more content.</error>", o.NextIndex)
	}
	return buf.String()
}

// Tool retrieves web pages
type Tool struct {
	httpClient *http.Client
	userAgent  string
}

var _ tools.Tool[Input, Output] = (*Tool)(nil)

// New returns the fetch tool
func New() *Tool {
	return &Tool{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  DefaultUserAgent,
	}
}

func (t *Tool) WithHTTPClient(client *http.Client) *Tool {
	t.httpClient = client
	return t
}

func (t *Tool) WithUserAgent(ua string) *Tool {
	t.userAgent = ua
	return t
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return Description
}

func (t *Tool) Parameters() *jsonschema.Schema {
	return schema.MustNew(reflect.TypeOf(Input{})).Parameters
}

func (t *Tool) Run(ctx context.Context, in *Input) (*Output, error) {
	u, err := url.Parse(strings.TrimSpace(in.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Wrapf(chatmodel.ErrFailedUnmarshalInput, "invalid url %q", in.URL)
	}
	if in.StartIndex < 0 || in.MaxLength < 0 {
		return nil, errors.Wrap(chatmodel.ErrFailedUnmarshalInput, "start_index and max_length must not be negative")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "request build failed")
	}
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s", u.String())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("failed to fetch %s: status code %d", u.String(), resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "response read failed")
	}

	contentType := resp.Header.Get("Content-Type")
	content := string(body)
	if !in.Raw && isHTML(contentType, body) {
		content, err = readableText(body)
		if err != nil {
			return nil, err
		}
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "fetched",
		"url", u.String(),
		"content_type", contentType,
		"size", len(body),
	)

	out := &Output{
		URL:         u.String(),
		ContentType: contentType,
	}
	out.Content, out.NextIndex, out.Remaining = window(content, in.StartIndex, in.MaxLength)
	return out, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	var req Input
	if err := tools.DecodeInput(input, &req); err != nil {
		return "", err
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

// window returns size runes of s starting at start, and the index to continue from.
func window(s string, start, size int) (string, int, bool) {
	if size == 0 {
		size = DefaultMaxLength
	}
	r := []rune(s)
	if start >= len(r) {
		return "", 0, false
	}
	end := start + size
	if end >= len(r) {
		return string(r[start:]), 0, true
	}
	return string(r[start:end]), end, true
}

func isHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	prefix := bytes.ToLower(bytes.TrimSpace(body[:min(len(body), 100)]))
	return bytes.HasPrefix(prefix, []byte("<!doctype html")) || bytes.HasPrefix(prefix, []byte("<html"))
}

// readableText returns the title and the text of the page body,
// without scripts, styles and navigation.
func readableText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "HTML parse failed")
	}
	doc.Find("script, style, noscript, nav, iframe, svg, template").Remove()

	var buf strings.Builder
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		buf.WriteString("# ")
		buf.WriteString(title)
		buf.WriteString("\n\n")
	}

	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}
	return strings.TrimSpace(buf.String()), nil
}
