package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type ContentKind string

const (
	ContentKindVideo   ContentKind = "video"
	ContentKindForum   ContentKind = "forum"
	ContentKindPDF     ContentKind = "pdf"
	ContentKindWebpage ContentKind = "webpage"
)

// SourceURL is an absolute http(s) URL. The zero value is not valid; use
// ParseSourceURL.
type SourceURL struct {
	raw string
	u   *url.URL
}

func ParseSourceURL(raw string) (SourceURL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return SourceURL{}, fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return SourceURL{}, fmt.Errorf("unsupported URL scheme: %q", u.Scheme)
	}
	if u.Host == "" {
		return SourceURL{}, errors.New("URL has no host")
	}
	return SourceURL{raw: raw, u: u}, nil
}

// String returns the URL exactly as it was written.
func (s SourceURL) String() string {
	return s.raw
}

// Host returns the lower-cased hostname without port.
func (s SourceURL) Host() string {
	if s.u == nil {
		return ""
	}
	return strings.ToLower(s.u.Hostname())
}

func (s SourceURL) Path() string {
	if s.u == nil {
		return ""
	}
	return s.u.Path
}

func (s SourceURL) RawQuery() string {
	if s.u == nil {
		return ""
	}
	return s.u.RawQuery
}

func (s SourceURL) Fragment() string {
	if s.u == nil {
		return ""
	}
	return s.u.Fragment
}

// WithHost returns a copy of s pointing at host. Everything else in the raw
// URL, including user info and an explicit port, is kept verbatim.
func (s SourceURL) WithHost(host string) SourceURL {
	if s.u == nil {
		return s
	}
	start := strings.Index(s.raw, "://")
	if start < 0 {
		return s
	}
	start += len("://")
	end := len(s.raw)
	if i := strings.IndexAny(s.raw[start:], "/?#"); i >= 0 {
		end = start + i
	}

	authority := s.raw[start:end]
	var userinfo string
	if at := strings.LastIndex(authority, "@"); at >= 0 {
		userinfo = authority[:at+1]
	}
	newAuthority := userinfo + host
	if port := s.u.Port(); port != "" {
		newAuthority += ":" + port
	}

	raw := s.raw[:start] + newAuthority + s.raw[end:]
	u, err := url.Parse(raw)
	if err != nil {
		return s
	}
	return SourceURL{raw: raw, u: u}
}

// Fragment is one ordered unit of extracted text. Label is optional and
// describes where the text came from (page number, caption time range, ...).
type Fragment struct {
	Text  string
	Label string
}

// Document is the reduced plain-text content of one request.
type Document struct {
	Text      string
	Fragments int
}

func (d Document) IsEmpty() bool {
	return d.Text == ""
}

func (d Document) String() string {
	return d.Text
}

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeDeclined
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeDeclined:
		return "declined"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of one acquisition attempt. Exactly one of Document,
// Reason or Err is meaningful, selected by Outcome.
type Result struct {
	Outcome  Outcome
	Document Document
	Reason   string
	Err      error
}

func Success(doc Document) Result {
	return Result{Outcome: OutcomeSuccess, Document: doc}
}

func Declined(reason string) Result {
	return Result{Outcome: OutcomeDeclined, Reason: reason}
}

func Failed(err error) Result {
	if err == nil {
		err = errors.New("acquisition failed")
	}
	return Result{Outcome: OutcomeFailed, Err: err}
}
