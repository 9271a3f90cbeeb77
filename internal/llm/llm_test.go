package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clobrano/briefbot/internal/config"
)

type fakeProvider struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeProvider) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func TestAssistant_Prompts(t *testing.T) {
	tests := []struct {
		name     string
		call     func(a *Assistant) (string, error)
		contains []string
	}{
		{
			name:     "summarize",
			call:     func(a *Assistant) (string, error) { return a.Summarize(context.Background(), "doc body") },
			contains: []string{"summarizing", "doc body"},
		},
		{
			name:     "translate",
			call:     func(a *Assistant) (string, error) { return a.Translate(context.Background(), "こんにちは", "繁體中文") },
			contains: []string{"into 繁體中文", "こんにちは"},
		},
		{
			name:     "translate and explain",
			call:     func(a *Assistant) (string, error) { return a.TranslateAndExplain(context.Background(), "hello", "日文") },
			contains: []string{"into 日文", "explain in 日文", "hello"},
		},
		{
			name:     "polish",
			call:     func(a *Assistant) (string, error) { return a.Polish(context.Background(), "teh text") },
			contains: []string{"Polish", "teh text"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{reply: "  answer \n"}
			got, err := tt.call(NewAssistant(p))

			require.NoError(t, err)
			assert.Equal(t, "answer", got)
			require.Len(t, p.prompts, 1)
			for _, s := range tt.contains {
				assert.Contains(t, p.prompts[0], s)
			}
		})
	}
}

func TestAssistant_Errors(t *testing.T) {
	boom := errors.New("rate limited")
	_, err := NewAssistant(&fakeProvider{err: boom}).Summarize(context.Background(), "x")
	assert.ErrorIs(t, err, boom)

	_, err = NewAssistant(&fakeProvider{reply: " \n"}).Polish(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LLMConfig
		wantErr string
	}{
		{name: "claude without key", cfg: config.LLMConfig{Provider: "claude"}, wantErr: "ANTHROPIC_API_KEY"},
		{name: "gemini without key", cfg: config.LLMConfig{Provider: "gemini"}, wantErr: "GOOGLE_API_KEY"},
		{name: "openai without key", cfg: config.LLMConfig{Provider: "openai"}, wantErr: "OPENAI_API_KEY"},
		{name: "unknown", cfg: config.LLMConfig{Provider: "llama"}, wantErr: "unsupported LLM provider"},
		{name: "claude", cfg: config.LLMConfig{Provider: "Claude", AnthropicKey: "k", Model: "m"}},
		{name: "openai", cfg: config.LLMConfig{Provider: "openai", OpenAIKey: "k", Model: "m"}},
		{name: "gemini", cfg: config.LLMConfig{Provider: "gemini", GoogleKey: "k", Model: "m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(context.Background(), tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, p)
		})
	}
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" translated \n"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL+"/v1", "gpt-4o-mini")
	reply, err := p.Complete(context.Background(), "prompt text")

	require.NoError(t, err)
	assert.Equal(t, "translated", reply)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "prompt text", got.Messages[0].Content)
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIProvider("k", srv.URL+"/v1", "m").Complete(context.Background(), "p")
	assert.Error(t, err)
}

func TestClaudeProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test","content":[{"type":"text","text":"part one, "},{"type":"text","text":"part two"}],"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":4}}`))
	}))
	defer srv.Close()

	p := NewClaudeProvider("test-key", "claude-test", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	reply, err := p.Complete(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, "part one, part two", reply)
}

func TestClaudeProvider_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer srv.Close()

	p := NewClaudeProvider("test-key", "claude-test", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	_, err := p.Complete(context.Background(), "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "claude API error")
}

func geminiServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent"), "path %s", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeminiProvider_Complete(t *testing.T) {
	srv := geminiServer(t, `{"candidates":[{"content":{"role":"model","parts":[{"text":"weighing options","thought":true},{"text":" the answer \n"}]},"finishReason":"STOP"}]}`)

	p, err := NewGeminiProvider(context.Background(), "test-key", srv.URL, "gemini-test")
	require.NoError(t, err)
	reply, err := p.Complete(context.Background(), "question")

	require.NoError(t, err)
	assert.Equal(t, "the answer", reply)
}

func TestGeminiProvider_Refusals(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "blocked prompt", body: `{"promptFeedback":{"blockReason":"SAFETY"}}`, wantErr: "SAFETY"},
		{name: "no candidates", body: `{"candidates":[]}`, wantErr: "empty response"},
		{name: "stopped early", body: `{"candidates":[{"content":{"role":"model","parts":[]},"finishReason":"MAX_TOKENS"}]}`, wantErr: "MAX_TOKENS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := geminiServer(t, tt.body)

			p, err := NewGeminiProvider(context.Background(), "test-key", srv.URL, "gemini-test")
			require.NoError(t, err)
			_, err = p.Complete(context.Background(), "question")

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
