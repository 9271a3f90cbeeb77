package processor

import (
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/clobrano/briefbot/internal/config"
	"github.com/clobrano/briefbot/internal/metrics"
)

const (
	fetchTimeout = 2 * time.Minute
	probeTimeout = 15 * time.Second
)

// NewFromConfig wires the pipeline and all of its strategies from cfg.
func NewFromConfig(cfg *config.Config, m *metrics.Metrics) (*Pipeline, error) {
	pc := cfg.Pipeline
	headers := RequestHeaders{
		UserAgent:      pc.UserAgent,
		AcceptLanguage: pc.AcceptLanguage,
	}
	forumHeaders := headers
	forumHeaders.Cookie = pc.ForumCookie

	client := &http.Client{Timeout: fetchTimeout}

	speech, err := newSpeechToText(cfg)
	if err != nil {
		return nil, err
	}

	ytdlp := NewYtDlp(cfg.Tools.YtDlp, pc.TempDir)

	strategies := []Strategy{
		NewVideoStrategy(ytdlp, NewStreamTranscriber(ytdlp, speech, pc.TempDir), pc.CaptionLanguages, m),
		NewForumStrategy(client, forumHeaders, pc.MaxBodyBytes, pc.ForumComments),
		NewPDFStrategy(client, headers, pc.MaxBodyBytes, pc.TempDir),
		NewTextExtractor(newRenderer(cfg.Tools.SingleFile, client, headers, pc.MaxBodyBytes)),
	}

	return New(Options{
		Normalizer: NewNormalizer(pc.HostRewrites),
		Classifier: NewClassifier(ClassifierOptions{
			VideoHosts:    pc.VideoHosts,
			ForumPatterns: pc.ForumPatterns,
			Prober:        NewHTTPProber(headers, probeTimeout, m),
		}),
		Strategies: strategies,
		Timeout:    pc.Timeout,
		Metrics:    m,
	}), nil
}

func newSpeechToText(cfg *config.Config) (SpeechToText, error) {
	switch strings.ToLower(cfg.Tools.WhisperBackend) {
	case "", "local":
		return NewWhisperCLI(cfg.Tools.Whisper, cfg.Tools.WhisperModel, cfg.Tools.WhisperThreads, cfg.Tools.WhisperModelDir), nil
	case "openai":
		if cfg.LLM.OpenAIKey == "" {
			return nil, fmt.Errorf("whisper backend openai requires OPENAI_API_KEY")
		}
		oc := openai.DefaultConfig(cfg.LLM.OpenAIKey)
		if cfg.LLM.OpenAIBaseURL != "" {
			oc.BaseURL = cfg.LLM.OpenAIBaseURL
		}
		model := cfg.Tools.WhisperModel
		if !strings.HasPrefix(model, "whisper-") && !strings.Contains(model, "transcribe") {
			model = ""
		}
		return NewOpenAISpeech(openai.NewClientWithConfig(oc), model), nil
	default:
		return nil, fmt.Errorf("unknown whisper backend %q", cfg.Tools.WhisperBackend)
	}
}

// newRenderer prefers SingleFile when its binary is available and falls back
// to a plain HTTP fetch otherwise.
func newRenderer(singleFile string, client *http.Client, headers RequestHeaders, maxBytes int64) Renderer {
	if singleFile != "" {
		if path, err := exec.LookPath(singleFile); err == nil {
			return NewSingleFileRenderer(path, headers)
		}
		log.Warn().Str("binary", singleFile).Msg("single-file not found, pages will be fetched without rendering")
	}
	return NewHTTPRenderer(client, headers, maxBytes)
}
