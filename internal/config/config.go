package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Tools    ToolsConfig    `yaml:"tools"`
	Finance  FinanceConfig  `yaml:"finance"`

	NtfyTopic   string `yaml:"ntfy_topic"`
	NtfyServer  string `yaml:"ntfy_server"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

type TelegramConfig struct {
	Token           string  `yaml:"token"`
	Whitelist       []int64 `yaml:"whitelist"`
	DeveloperChatID int64   `yaml:"developer_chat_id"`
	MaxConcurrent   int     `yaml:"max_concurrent"`
}

type LLMConfig struct {
	Provider      string `yaml:"provider"`
	Model         string `yaml:"model"`
	AnthropicKey  string `yaml:"anthropic_key"`
	GoogleKey     string `yaml:"google_key"`
	GeminiBaseURL string `yaml:"gemini_base_url"`
	OpenAIKey     string `yaml:"openai_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
}

type ForumPattern struct {
	Host       string `yaml:"host"`
	PathPrefix string `yaml:"path_prefix"`
}

type PipelineConfig struct {
	Timeout          time.Duration     `yaml:"timeout"`
	UserAgent        string            `yaml:"user_agent"`
	AcceptLanguage   string            `yaml:"accept_language"`
	MaxBodyBytes     int64             `yaml:"max_body_bytes"`
	TempDir          string            `yaml:"temp_dir"`
	HostRewrites     map[string]string `yaml:"host_rewrites"`
	VideoHosts       []string          `yaml:"video_hosts"`
	CaptionLanguages []string          `yaml:"caption_languages"`
	ForumPatterns    []ForumPattern    `yaml:"forum_patterns"`
	ForumCookie      string            `yaml:"forum_cookie"`
	ForumComments    bool              `yaml:"forum_comments"`
}

type ToolsConfig struct {
	YtDlp           string `yaml:"ytdlp"`
	Whisper         string `yaml:"whisper"`
	WhisperBackend  string `yaml:"whisper_backend"`
	WhisperModel    string `yaml:"whisper_model"`
	WhisperThreads  string `yaml:"whisper_threads"`
	WhisperModelDir string `yaml:"whisper_model_dir"`
	SingleFile      string `yaml:"singlefile"`
}

type FinanceConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration before any file or environment
// overrides are applied.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			MaxConcurrent: 4,
		},
		LLM: LLMConfig{
			Provider: "claude",
		},
		Pipeline: PipelineConfig{
			Timeout:        10 * time.Minute,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
			AcceptLanguage: "zh-TW,zh;q=0.9,ja;q=0.8,en-US;q=0.7,en;q=0.6",
			MaxBodyBytes:   50 << 20,
			HostRewrites: map[string]string{
				"twitter.com":     "api.fxtwitter.com",
				"x.com":           "api.fxtwitter.com",
				"www.twitter.com": "api.fxtwitter.com",
				"www.x.com":       "api.fxtwitter.com",
			},
			VideoHosts: []string{
				"www.youtube.com",
				"youtube.com",
				"m.youtube.com",
				"youtu.be",
			},
			CaptionLanguages: []string{"zh-TW", "zh-Hant", "zh-Hans", "ja", "en"},
			ForumPatterns: []ForumPattern{
				{Host: "www.ptt.cc", PathPrefix: "/bbs/"},
			},
			ForumCookie:   "over18=1",
			ForumComments: true,
		},
		Tools: ToolsConfig{
			YtDlp:          "yt-dlp",
			Whisper:        "whisper",
			WhisperBackend: "local",
			WhisperModel:   "base",
		},
		Finance: FinanceConfig{
			BaseURL: "https://query1.finance.yahoo.com",
			Timeout: 15 * time.Second,
		},
		NtfyServer: "https://ntfy.sh",
		LogLevel:   "info",
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// and the environment, in that order of precedence. A .env file in the
// working directory is loaded first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// a missing file is fine, env and defaults still apply
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultModel(cfg.LLM.Provider)
	}

	return cfg, nil
}

// ValidateTransport reports the configuration errors that stop the bot from
// starting.
func (c *Config) ValidateTransport() error {
	if c.Telegram.Token == "" {
		return errors.New("BOT_TOKEN is not set")
	}
	if len(c.Telegram.Whitelist) == 0 {
		return errors.New("BOT_WHITELIST is not set")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Telegram.Token = getEnv("BOT_TOKEN", cfg.Telegram.Token)
	if raw := os.Getenv("BOT_WHITELIST"); raw != "" {
		ids, err := ParseChatIDs(raw)
		if err != nil {
			return fmt.Errorf("invalid BOT_WHITELIST: %w", err)
		}
		cfg.Telegram.Whitelist = ids
	}
	if raw := os.Getenv("DEVELOPER_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid DEVELOPER_CHAT_ID: %w", err)
		}
		cfg.Telegram.DeveloperChatID = id
	}

	cfg.LLM.Provider = getEnv("BRIEFBOT_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Model = getEnv("BRIEFBOT_LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.AnthropicKey = getEnv("ANTHROPIC_API_KEY", cfg.LLM.AnthropicKey)
	cfg.LLM.GoogleKey = getEnv("GOOGLE_API_KEY", cfg.LLM.GoogleKey)
	cfg.LLM.GeminiBaseURL = getEnv("GEMINI_BASE_URL", cfg.LLM.GeminiBaseURL)
	cfg.LLM.OpenAIKey = getEnv("OPENAI_API_KEY", cfg.LLM.OpenAIKey)
	cfg.LLM.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.LLM.OpenAIBaseURL)

	cfg.Tools.WhisperBackend = getEnv("BRIEFBOT_WHISPER_BACKEND", cfg.Tools.WhisperBackend)
	cfg.Tools.WhisperModel = getEnv("BRIEFBOT_WHISPER_MODEL", cfg.Tools.WhisperModel)
	cfg.Tools.WhisperThreads = getEnv("BRIEFBOT_WHISPER_THREADS", cfg.Tools.WhisperThreads)
	cfg.Tools.WhisperModelDir = getEnv("BRIEFBOT_WHISPER_MODEL_DIR", cfg.Tools.WhisperModelDir)
	cfg.Tools.SingleFile = getEnv("BRIEFBOT_SINGLEFILE", cfg.Tools.SingleFile)

	cfg.NtfyTopic = getEnv("BRIEFBOT_NTFY_TOPIC", cfg.NtfyTopic)
	cfg.MetricsAddr = getEnv("BRIEFBOT_METRICS_ADDR", cfg.MetricsAddr)
	cfg.LogLevel = getEnv("BRIEFBOT_LOG_LEVEL", cfg.LogLevel)
	return nil
}

// ParseChatIDs parses a comma separated list of chat IDs, ignoring spaces.
func ParseChatIDs(raw string) ([]int64, error) {
	raw = strings.ReplaceAll(raw, " ", "")
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("chat id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func defaultModel(provider string) string {
	switch provider {
	case "claude":
		return "claude-3-7-sonnet-latest"
	case "gemini":
		return "gemini-2.5-flash"
	case "openai":
		return "gpt-4o-mini"
	}
	return ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
