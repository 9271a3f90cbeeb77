package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/clobrano/briefbot/internal/metrics"
	"github.com/clobrano/briefbot/internal/models"
)

var (
	ErrNoCaptions        = errors.New("no caption track available")
	ErrStreamUnavailable = errors.New("no downloadable stream available")
)

// CaptionSource fetches an existing caption track, trying languages in order
// and returning the first one found. It returns ErrNoCaptions when the video
// has none of them.
type CaptionSource interface {
	Captions(ctx context.Context, u models.SourceURL, languages []string) ([]models.Fragment, error)
}

// Transcriber produces a transcript from the media stream itself. It returns
// ErrStreamUnavailable when there is nothing to download.
type Transcriber interface {
	Transcribe(ctx context.Context, u models.SourceURL) ([]models.Fragment, error)
}

type AudioDownloader interface {
	DownloadAudio(ctx context.Context, u models.SourceURL, outputPath string) error
}

// VideoStrategy prefers captions and falls back to speech-to-text.
type VideoStrategy struct {
	captions    CaptionSource
	transcriber Transcriber
	languages   []string
	metrics     *metrics.Metrics
}

func NewVideoStrategy(captions CaptionSource, transcriber Transcriber, languages []string, m *metrics.Metrics) *VideoStrategy {
	return &VideoStrategy{
		captions:    captions,
		transcriber: transcriber,
		languages:   languages,
		metrics:     m,
	}
}

func (v *VideoStrategy) Kind() models.ContentKind {
	return models.ContentKindVideo
}

func (v *VideoStrategy) Acquire(ctx context.Context, u models.SourceURL) models.Result {
	if v.captions != nil {
		fragments, err := v.captions.Captions(ctx, u, v.languages)
		switch {
		case err == nil:
			if doc := Reduce(fragments); !doc.IsEmpty() {
				return models.Success(doc)
			}
			log.Info().Str("url", u.String()).Msg("caption track is empty")
		case errors.Is(err, ErrNoCaptions):
			log.Info().Str("url", u.String()).Msg("no captions found for video")
		default:
			log.Warn().Err(err).Str("url", u.String()).Msg("failed to fetch captions, falling back to transcription")
		}
	}

	if v.transcriber == nil {
		return models.Declined("no captions and no transcriber configured")
	}

	v.metrics.ObserveCaptionFallback()
	fragments, err := v.transcriber.Transcribe(ctx, u)
	if errors.Is(err, ErrStreamUnavailable) {
		return models.Declined("no captions and no downloadable stream")
	}
	if err != nil {
		return models.Failed(fmt.Errorf("failed to transcribe video: %w", err))
	}

	doc := Reduce(fragments)
	if doc.IsEmpty() {
		return models.Declined("transcription produced no text")
	}
	return models.Success(doc)
}

// YtDlp drives the yt-dlp CLI for caption and audio downloads.
type YtDlp struct {
	binary  string
	tempDir string
}

func NewYtDlp(binary, tempDir string) *YtDlp {
	if binary == "" {
		binary = "yt-dlp"
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &YtDlp{binary: binary, tempDir: tempDir}
}

// Captions returns the first uploaded track in language order. Without one it
// falls back to the speech-recognition track in the video's own language,
// which yt-dlp names "<lang>-orig". Machine-translated tracks are never used.
func (y *YtDlp) Captions(ctx context.Context, u models.SourceURL, languages []string) ([]models.Fragment, error) {
	if len(languages) == 0 {
		return nil, ErrNoCaptions
	}

	workDir, err := os.MkdirTemp(y.tempDir, "briefbot-subs-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	original := make([]string, len(languages))
	for i, lang := range languages {
		original[i] = lang + "-orig"
	}

	passes := []struct {
		flag  string
		langs []string
	}{
		{flag: "--write-subs", langs: languages},
		{flag: "--write-auto-subs", langs: original},
	}
	for _, pass := range passes {
		fragments, found, err := y.fetchCaptions(ctx, u, workDir, pass.flag, pass.langs)
		if err != nil {
			return nil, err
		}
		if found {
			return fragments, nil
		}
	}
	return nil, ErrNoCaptions
}

func (y *YtDlp) fetchCaptions(ctx context.Context, u models.SourceURL, workDir, flag string, languages []string) ([]models.Fragment, bool, error) {
	args := []string{
		"--skip-download",
		flag,
		"--sub-langs", strings.Join(languages, ","),
		"--sub-format", "vtt",
		"-o", filepath.Join(workDir, "captions.%(ext)s"),
		"--no-playlist",
		"--no-warnings",
		u.String(),
	}
	if _, err := y.run(ctx, args); err != nil {
		return nil, false, err
	}

	for _, lang := range languages {
		f, err := os.Open(filepath.Join(workDir, "captions."+lang+".vtt"))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("failed to open captions: %w", err)
		}
		fragments, err := parseVTT(f)
		f.Close()
		if err != nil {
			return nil, false, fmt.Errorf("failed to parse captions: %w", err)
		}
		log.Debug().Str("url", u.String()).Str("lang", lang).Int("cues", len(fragments)).Msg("loaded captions")
		return fragments, true, nil
	}
	return nil, false, nil
}

func (y *YtDlp) DownloadAudio(ctx context.Context, u models.SourceURL, outputPath string) error {
	args := []string{
		"-x",                    // Extract audio
		"--audio-format", "mp3", // Convert to mp3
		"--audio-quality", "0",  // Best quality
		"-o", outputPath,
		"--no-playlist",
		"--no-warnings",
		u.String(),
	}

	if stderr, err := y.run(ctx, args); err != nil {
		if streamUnavailable(stderr) {
			return fmt.Errorf("%w: %s", ErrStreamUnavailable, strings.TrimSpace(stderr))
		}
		return err
	}

	// yt-dlp might add extension, check for the file
	if _, err := os.Stat(outputPath); os.IsNotExist(err) {
		if _, err := os.Stat(outputPath + ".mp3"); err == nil {
			return os.Rename(outputPath+".mp3", outputPath)
		}
		return fmt.Errorf("%w: yt-dlp produced no audio file", ErrStreamUnavailable)
	}
	return nil
}

func (y *YtDlp) run(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, y.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stderr.String(), fmt.Errorf("yt-dlp interrupted: %w", ctxErr)
		}
		return stderr.String(), fmt.Errorf("yt-dlp failed: %w, stderr: %s", err, stderr.String())
	}
	return stderr.String(), nil
}

var unavailableMarkers = []string{
	"video unavailable",
	"private video",
	"requested format is not available",
	"no video formats found",
	"this live event will begin",
	"members-only content",
}

func streamUnavailable(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, marker := range unavailableMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// StreamTranscriber downloads the audio track and runs speech-to-text on it.
type StreamTranscriber struct {
	downloader AudioDownloader
	speech     SpeechToText
	tempDir    string
}

func NewStreamTranscriber(downloader AudioDownloader, speech SpeechToText, tempDir string) *StreamTranscriber {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &StreamTranscriber{downloader: downloader, speech: speech, tempDir: tempDir}
}

func (s *StreamTranscriber) Transcribe(ctx context.Context, u models.SourceURL) ([]models.Fragment, error) {
	workDir, err := os.MkdirTemp(s.tempDir, "briefbot-yt-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	audioPath := filepath.Join(workDir, "audio.mp3")
	if err := s.downloader.DownloadAudio(ctx, u, audioPath); err != nil {
		return nil, fmt.Errorf("failed to download audio: %w", err)
	}

	transcript, err := s.speech.TranscribeFile(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to transcribe: %w", err)
	}

	var fragments []models.Fragment
	for _, line := range strings.Split(transcript, "\n") {
		fragments = append(fragments, models.Fragment{Text: line})
	}
	return fragments, nil
}
