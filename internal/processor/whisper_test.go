package processor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clobrano/briefbot/internal/config"
	"github.com/clobrano/briefbot/internal/models"
)

func TestOpenAISpeech(t *testing.T) {
	var model string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/audio/transcriptions"))
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		model = r.FormValue("model")
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("  first line\nsecond line \n"))
	}))
	defer srv.Close()

	audio := filepath.Join(t.TempDir(), "audio.mp3")
	require.NoError(t, os.WriteFile(audio, []byte("fake audio"), 0644))

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	s := NewOpenAISpeech(openai.NewClientWithConfig(cfg), "")

	text, err := s.TranscribeFile(context.Background(), audio)

	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond line", text)
	assert.Equal(t, openai.Whisper1, model)
}

func TestWhisperCLI_MissingBinary(t *testing.T) {
	w := NewWhisperCLI("/nonexistent/whisper", "", "", "")
	_, err := w.TranscribeFile(context.Background(), filepath.Join(t.TempDir(), "audio.mp3"))
	assert.Error(t, err)
}

func TestNewSpeechToText(t *testing.T) {
	cfg := config.Default()
	s, err := newSpeechToText(cfg)
	require.NoError(t, err)
	assert.IsType(t, &WhisperCLI{}, s)

	cfg.Tools.WhisperBackend = "openai"
	_, err = newSpeechToText(cfg)
	assert.Error(t, err, "openai backend needs a key")

	cfg.LLM.OpenAIKey = "k"
	s, err = newSpeechToText(cfg)
	require.NoError(t, err)
	require.IsType(t, &OpenAISpeech{}, s)
	assert.Equal(t, openai.Whisper1, s.(*OpenAISpeech).model, "local model names are not sent to the API")

	cfg.Tools.WhisperModel = "gpt-4o-mini-transcribe"
	s, err = newSpeechToText(cfg)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini-transcribe", s.(*OpenAISpeech).model)

	cfg.Tools.WhisperBackend = "carrier-pigeon"
	_, err = newSpeechToText(cfg)
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.SingleFile = "/nonexistent/single-file"

	p, err := NewFromConfig(cfg, nil)
	require.NoError(t, err)

	for _, kind := range []string{"video", "forum", "pdf", "webpage"} {
		_, ok := p.strategies[models.ContentKind(kind)]
		assert.True(t, ok, "strategy for %s", kind)
	}
	_, ok := p.strategies[models.ContentKind("webpage")].(*TextExtractor).renderer.(*HTTPRenderer)
	assert.True(t, ok, "falls back to plain HTTP when single-file is missing")
}
