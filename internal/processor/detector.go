package processor

import (
	"context"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clobrano/briefbot/internal/config"
	"github.com/clobrano/briefbot/internal/metrics"
	"github.com/clobrano/briefbot/internal/models"
)

const pdfContentType = "application/pdf"

// Prober reports the declared content type of a URL. Any failure is reported
// as ok == false.
type Prober interface {
	ProbeContentType(ctx context.Context, u models.SourceURL) (string, bool)
}

type ClassifierOptions struct {
	VideoHosts    []string
	ForumPatterns []config.ForumPattern
	Prober        Prober
}

type Classifier struct {
	videoHosts    map[string]bool
	forumPatterns []config.ForumPattern
	prober        Prober
}

func NewClassifier(opts ClassifierOptions) *Classifier {
	hosts := make(map[string]bool, len(opts.VideoHosts))
	for _, h := range opts.VideoHosts {
		hosts[strings.ToLower(h)] = true
	}
	patterns := make([]config.ForumPattern, 0, len(opts.ForumPatterns))
	for _, p := range opts.ForumPatterns {
		patterns = append(patterns, config.ForumPattern{
			Host:       strings.ToLower(p.Host),
			PathPrefix: p.PathPrefix,
		})
	}
	return &Classifier{
		videoHosts:    hosts,
		forumPatterns: patterns,
		prober:        opts.Prober,
	}
}

// Classify picks the content kind for u. String checks run before the network
// probe, and GenericWebpage is returned when nothing else matches.
func (c *Classifier) Classify(ctx context.Context, u models.SourceURL) models.ContentKind {
	host := u.Host()

	if c.videoHosts[host] {
		return models.ContentKindVideo
	}

	for _, p := range c.forumPatterns {
		if host == p.Host && strings.HasPrefix(u.Path(), p.PathPrefix) {
			return models.ContentKindForum
		}
	}

	if c.prober != nil {
		if ct, ok := c.prober.ProbeContentType(ctx, u); ok && isPDFContentType(ct) {
			return models.ContentKindPDF
		}
	}

	return models.ContentKindWebpage
}

func isPDFContentType(ct string) bool {
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.EqualFold(strings.TrimSpace(ct), pdfContentType)
	}
	return mediaType == pdfContentType
}

// HTTPProber issues a HEAD request and returns the Content-Type header.
type HTTPProber struct {
	client  *http.Client
	headers RequestHeaders
	metrics *metrics.Metrics
}

func NewHTTPProber(headers RequestHeaders, timeout time.Duration, m *metrics.Metrics) *HTTPProber {
	return &HTTPProber{
		client:  &http.Client{Timeout: timeout},
		headers: headers,
		metrics: m,
	}
}

func (p *HTTPProber) ProbeContentType(ctx context.Context, u models.SourceURL) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
	if err != nil {
		p.fail(u, err)
		return "", false
	}
	p.headers.apply(req)

	resp, err := p.client.Do(req)
	if err != nil {
		p.fail(u, err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.fail(u, &StatusError{Code: resp.StatusCode})
		return "", false
	}

	ct := resp.Header.Get("Content-Type")
	return ct, ct != ""
}

func (p *HTTPProber) fail(u models.SourceURL, err error) {
	log.Debug().Err(err).Str("url", u.String()).Msg("content-type probe failed")
	p.metrics.ObserveProbeFailure()
}
