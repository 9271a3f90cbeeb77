package processor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"github.com/clobrano/briefbot/internal/models"
)

// PDFStrategy downloads a PDF into a per-call work directory and extracts one
// fragment per page. The work directory is always removed before Acquire
// returns.
type PDFStrategy struct {
	client   *http.Client
	headers  RequestHeaders
	maxBytes int64
	tempDir  string
}

func NewPDFStrategy(client *http.Client, headers RequestHeaders, maxBytes int64, tempDir string) *PDFStrategy {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &PDFStrategy{
		client:   client,
		headers:  headers,
		maxBytes: maxBytes,
		tempDir:  tempDir,
	}
}

func (s *PDFStrategy) Kind() models.ContentKind {
	return models.ContentKindPDF
}

func (s *PDFStrategy) Acquire(ctx context.Context, u models.SourceURL) models.Result {
	workDir, err := os.MkdirTemp(s.tempDir, "briefbot-pdf-*")
	if err != nil {
		return models.Failed(fmt.Errorf("failed to create temp dir: %w", err))
	}
	defer os.RemoveAll(workDir)

	path := filepath.Join(workDir, "document.pdf")
	if err := s.download(ctx, u, path); err != nil {
		return models.Failed(fmt.Errorf("failed to download PDF: %w", err))
	}

	fragments, err := readPDFPages(path)
	if err != nil {
		return models.Failed(err)
	}

	return models.Success(Reduce(fragments))
}

func (s *PDFStrategy) download(ctx context.Context, u models.SourceURL, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := fetch(ctx, s.client, u.String(), s.headers, s.maxBytes, f); err != nil {
		return err
	}
	return f.Close()
}

// readPDFPages returns the plain text of every page, labelled with its page
// number. The PDF parser panics on some malformed input, so panics are turned
// into errors here.
func readPDFPages(path string) (fragments []models.Fragment, err error) {
	defer func() {
		if r := recover(); r != nil {
			fragments = nil
			err = fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Int("page", pageNum).Msg("failed to extract text from PDF page")
			continue
		}
		fragments = append(fragments, models.Fragment{
			Text:  text,
			Label: fmt.Sprintf("page %d", pageNum),
		})
	}
	return fragments, nil
}
