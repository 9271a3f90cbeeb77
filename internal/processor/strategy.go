package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/clobrano/briefbot/internal/models"
)

// Strategy acquires the content of one kind of source. Acquire never panics
// and reports "does not apply" as a Declined result rather than an error.
type Strategy interface {
	Kind() models.ContentKind
	Acquire(ctx context.Context, u models.SourceURL) models.Result
}

// RequestHeaders are sent with every outbound fetch.
type RequestHeaders struct {
	UserAgent      string
	AcceptLanguage string
	Cookie         string
}

func (h RequestHeaders) apply(req *http.Request) {
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}
	if h.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", h.AcceptLanguage)
	}
	if h.Cookie != "" {
		req.Header.Set("Cookie", h.Cookie)
	}
}

type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.Code)
}

var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// fetch GETs url and streams the body into w, stopping with ErrBodyTooLarge
// after maxBytes when maxBytes > 0. It returns the response Content-Type.
func fetch(ctx context.Context, client *http.Client, url string, headers RequestHeaders, maxBytes int64, w io.Writer) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	headers.apply(req)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Code: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	if maxBytes > 0 {
		body = io.LimitReader(resp.Body, maxBytes+1)
	}
	n, err := io.Copy(w, body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if maxBytes > 0 && n > maxBytes {
		return "", ErrBodyTooLarge
	}
	return resp.Header.Get("Content-Type"), nil
}
