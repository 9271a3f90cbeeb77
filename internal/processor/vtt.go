package processor

import (
	"bufio"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/clobrano/briefbot/internal/models"
)

var vttTagRegexp = regexp.MustCompile(`<[^>]*>`)

// parseVTT turns a WebVTT caption file into one fragment per cue, labelled
// with the cue timing. Auto-generated captions repeat the previous line in
// each cue, so a line equal to the previously emitted one is dropped.
func parseVTT(r io.Reader) ([]models.Fragment, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		fragments []models.Fragment
		label     string
		lines     []string
		inCue     bool
		skipBlock bool
		last      string
	)

	flush := func() {
		defer func() {
			lines = lines[:0]
			inCue = false
			label = ""
		}()
		if !inCue {
			return
		}
		var kept []string
		for _, line := range lines {
			if line == last {
				continue
			}
			kept = append(kept, line)
			last = line
		}
		if len(kept) == 0 {
			return
		}
		fragments = append(fragments, models.Fragment{
			Text:  strings.Join(kept, " "),
			Label: label,
		})
	}

	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))

		if line == "" {
			flush()
			skipBlock = false
			continue
		}
		if skipBlock {
			continue
		}

		switch {
		case strings.Contains(line, "-->"):
			inCue = true
			label = cueTiming(line)
			lines = lines[:0]
		case !inCue && (strings.HasPrefix(line, "WEBVTT") ||
			strings.HasPrefix(line, "NOTE") ||
			strings.HasPrefix(line, "STYLE") ||
			strings.HasPrefix(line, "REGION")):
			skipBlock = true
		case inCue:
			text := strings.TrimSpace(html.UnescapeString(vttTagRegexp.ReplaceAllString(line, "")))
			if text != "" {
				lines = append(lines, text)
			}
		}
		// anything else outside a cue is a cue identifier or header metadata
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return fragments, nil
}

// cueTiming keeps the "start --> end" part of a timing line, dropping cue
// settings such as "align:start position:0%".
func cueTiming(line string) string {
	parts := strings.Fields(line)
	if len(parts) >= 3 && parts[1] == "-->" {
		return parts[0] + " --> " + parts[2]
	}
	return line
}
