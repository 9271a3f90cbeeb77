package bot

import "strings"

// MaxMessageLength is Telegram's limit for the text of one message.
const MaxMessageLength = 4096

// splitMessage cuts text into chunks of at most limit characters. Cuts fall
// on line boundaries where possible; a single line longer than limit is cut
// mid-line.
func splitMessage(text string, limit int) []string {
	if limit <= 0 || len([]rune(text)) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			chunks = append(chunks, string(cur))
			cur = cur[:0]
		}
	}

	for i, line := range strings.Split(text, "\n") {
		r := []rune(line)
		if i > 0 {
			if len(cur)+1+len(r) <= limit && len(cur) > 0 {
				cur = append(cur, '\n')
				cur = append(cur, r...)
				continue
			}
			flush()
		}
		for len(r) > limit {
			flush()
			chunks = append(chunks, string(r[:limit]))
			r = r[limit:]
		}
		if len(cur)+len(r) > limit {
			flush()
		}
		cur = append(cur, r...)
	}
	flush()

	return chunks
}
