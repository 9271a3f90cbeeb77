package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/clobrano/briefbot/internal/models"
)

// Renderer produces a static snapshot of a page.
type Renderer interface {
	Render(ctx context.Context, u models.SourceURL) ([]byte, error)
}

// SingleFileRenderer runs the SingleFile CLI, which loads the page in a
// headless browser so client-side content is included in the snapshot.
type SingleFileRenderer struct {
	binary  string
	headers RequestHeaders
}

func NewSingleFileRenderer(binary string, headers RequestHeaders) *SingleFileRenderer {
	return &SingleFileRenderer{binary: binary, headers: headers}
}

func (r *SingleFileRenderer) Render(ctx context.Context, u models.SourceURL) ([]byte, error) {
	args := []string{
		u.String(),
		"--dump-content",
	}
	if r.headers.UserAgent != "" {
		args = append(args, "--user-agent", r.headers.UserAgent)
	}
	if r.headers.AcceptLanguage != "" {
		args = append(args, "--accept-language", r.headers.AcceptLanguage)
	}

	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("single-file failed: %w, stderr: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// HTTPRenderer fetches the raw page without running scripts. It is used when
// no browser-backed renderer is installed.
type HTTPRenderer struct {
	client   *http.Client
	headers  RequestHeaders
	maxBytes int64
}

func NewHTTPRenderer(client *http.Client, headers RequestHeaders, maxBytes int64) *HTTPRenderer {
	return &HTTPRenderer{client: client, headers: headers, maxBytes: maxBytes}
}

func (r *HTTPRenderer) Render(ctx context.Context, u models.SourceURL) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := fetch(ctx, r.client, u.String(), r.headers, r.maxBytes, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type TextExtractor struct {
	renderer Renderer
}

func NewTextExtractor(renderer Renderer) *TextExtractor {
	return &TextExtractor{renderer: renderer}
}

func (t *TextExtractor) Kind() models.ContentKind {
	return models.ContentKindWebpage
}

// Acquire renders the page and extracts its visible text as one fragment.
func (t *TextExtractor) Acquire(ctx context.Context, u models.SourceURL) models.Result {
	page, err := t.renderer.Render(ctx, u)
	if err != nil {
		return models.Failed(fmt.Errorf("failed to render page: %w", err))
	}

	text, err := extractPageText(page, u)
	if err != nil {
		return models.Failed(err)
	}

	return models.Success(Reduce([]models.Fragment{{Text: text, Label: u.Host()}}))
}

func extractPageText(page []byte, u models.SourceURL) (string, error) {
	if gjson.ValidBytes(page) {
		return jsonPostText(page), nil
	}
	if raw, ok := preformattedJSON(page); ok {
		return jsonPostText(raw), nil
	}

	pageURL, _ := url.Parse(u.String())
	article, err := readability.FromReader(bytes.NewReader(page), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.TextContent, nil
	}
	if err != nil {
		log.Debug().Err(err).Str("url", u.String()).Msg("readability failed, using visible body text")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}
	doc.Find("script, style, noscript, template").Remove()
	text := collapseBlankLines(doc.Find("body").Text())
	if text == "" {
		return "", errors.New("no text content extracted from URL")
	}
	return text, nil
}

// preformattedJSON unwraps a JSON response that a browser renderer displayed
// as a <pre> block.
func preformattedJSON(page []byte) ([]byte, bool) {
	if !bytes.Contains(page, []byte("<pre")) {
		return nil, false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, false
	}
	pre := doc.Find("body pre")
	if pre.Length() != 1 {
		return nil, false
	}
	raw := strings.TrimSpace(pre.Text())
	if !strings.HasPrefix(raw, "{") || !gjson.Valid(raw) {
		return nil, false
	}
	return []byte(raw), true
}

// jsonPostText renders a mirrored social-media post. Unknown JSON is returned
// as is.
func jsonPostText(page []byte) string {
	tweet := gjson.GetBytes(page, "tweet")
	if !tweet.Exists() || !tweet.Get("text").Exists() {
		return string(page)
	}

	var b strings.Builder
	name := tweet.Get("author.name").String()
	handle := tweet.Get("author.screen_name").String()
	switch {
	case name != "" && handle != "":
		fmt.Fprintf(&b, "%s (@%s): ", name, handle)
	case handle != "":
		fmt.Fprintf(&b, "@%s: ", handle)
	}
	b.WriteString(tweet.Get("text").String())

	if quote := tweet.Get("quote.text").String(); quote != "" {
		fmt.Fprintf(&b, "\n> @%s: %s", tweet.Get("quote.author.screen_name").String(), quote)
	}
	return b.String()
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
