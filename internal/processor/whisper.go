package processor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// SpeechToText turns an audio file into a transcript.
type SpeechToText interface {
	TranscribeFile(ctx context.Context, audioPath string) (string, error)
}

// WhisperCLI runs the local openai-whisper command.
type WhisperCLI struct {
	binary   string
	model    string
	threads  string
	modelDir string
}

func NewWhisperCLI(binary, model, threads, modelDir string) *WhisperCLI {
	if binary == "" {
		binary = "whisper"
	}
	if model == "" {
		model = "base"
	}
	return &WhisperCLI{binary: binary, model: model, threads: threads, modelDir: modelDir}
}

func (w *WhisperCLI) TranscribeFile(ctx context.Context, audioPath string) (string, error) {
	workDir := filepath.Dir(audioPath)

	args := []string{
		audioPath,
		"--model", w.model,
		"--output_format", "txt",
		"--output_dir", workDir,
		"--device", "cpu", // Explicitly use CPU to avoid GPU memory issues
		"--fp16", "False", // Disable FP16 on CPU to suppress warning
	}

	// Limit CPU threads if configured (helps reduce memory usage)
	if w.threads != "" {
		args = append(args, "--threads", w.threads)
	}
	if w.modelDir != "" {
		args = append(args, "--model_dir", w.modelDir)
	}

	cmd := exec.CommandContext(ctx, w.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("whisper failed: %w, stderr: %s", err, stderr.String())
	}

	// Whisper names the output after the input file
	audioBase := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	transcript, err := os.ReadFile(filepath.Join(workDir, audioBase+".txt"))
	if err != nil {
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}

	return strings.TrimSpace(string(transcript)), nil
}

// OpenAISpeech uses the hosted transcription endpoint of an OpenAI-compatible
// API.
type OpenAISpeech struct {
	client *openai.Client
	model  string
}

func NewOpenAISpeech(client *openai.Client, model string) *OpenAISpeech {
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAISpeech{client: client, model: model}
}

func (o *OpenAISpeech) TranscribeFile(ctx context.Context, audioPath string) (string, error) {
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription error: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
