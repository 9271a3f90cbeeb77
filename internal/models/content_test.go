package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSourceURL(t *testing.T) {
	u, err := ParseSourceURL("https://Example.COM:8443/a/b?c=d#e")
	require.NoError(t, err)

	assert.Equal(t, "https://Example.COM:8443/a/b?c=d#e", u.String())
	assert.Equal(t, "example.com", u.Host())
	assert.Equal(t, "/a/b", u.Path())
	assert.Equal(t, "c=d", u.RawQuery())
	assert.Equal(t, "e", u.Fragment())
}

func TestParseSourceURL_Rejects(t *testing.T) {
	for _, raw := range []string{"", "example.com/path", "mailto:someone@example.com", "ftp://example.com", "https://%zz", "https:///path"} {
		_, err := ParseSourceURL(raw)
		assert.Error(t, err, "input %q", raw)
	}
}

func TestWithHost(t *testing.T) {
	tests := []struct {
		name string
		in   string
		host string
		want string
	}{
		{name: "plain", in: "https://x.com/user/status/123", host: "api.fxtwitter.com", want: "https://api.fxtwitter.com/user/status/123"},
		{name: "no path", in: "https://x.com", host: "api.fxtwitter.com", want: "https://api.fxtwitter.com"},
		{name: "query only", in: "https://x.com?s=20", host: "api.fxtwitter.com", want: "https://api.fxtwitter.com?s=20"},
		{name: "port and userinfo kept", in: "http://me@x.com:8080/p?q=1#f", host: "mirror.example", want: "http://me@mirror.example:8080/p?q=1#f"},
		{name: "escaped path kept verbatim", in: "https://x.com/a%2Fb/%E5%8F%B0", host: "m.example", want: "https://m.example/a%2Fb/%E5%8F%B0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseSourceURL(tt.in)
			require.NoError(t, err)

			got := u.WithHost(tt.host)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, u.Path(), got.Path())
			assert.Equal(t, u.RawQuery(), got.RawQuery())
			assert.Equal(t, u.Fragment(), got.Fragment())
			// the original is untouched
			assert.Equal(t, tt.in, u.String())
		})
	}
}

func TestResultConstructors(t *testing.T) {
	doc := Document{Text: "hello", Fragments: 1}
	assert.Equal(t, OutcomeSuccess, Success(doc).Outcome)
	assert.Equal(t, doc, Success(doc).Document)

	declined := Declined("no captions")
	assert.Equal(t, OutcomeDeclined, declined.Outcome)
	assert.Equal(t, "no captions", declined.Reason)

	boom := errors.New("boom")
	failed := Failed(boom)
	assert.Equal(t, OutcomeFailed, failed.Outcome)
	assert.ErrorIs(t, failed.Err, boom)

	assert.Error(t, Failed(nil).Err)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "declined", OutcomeDeclined.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}

func TestDocumentIsEmpty(t *testing.T) {
	assert.True(t, Document{}.IsEmpty())
	assert.False(t, Document{Text: "x", Fragments: 1}.IsEmpty())
}
