package processor

import (
	"strings"

	"github.com/clobrano/briefbot/internal/models"
)

// Normalizer rewrites hosts that need a mirror to serve machine-readable
// content. Chains in the table are resolved up front, so Normalize is
// idempotent.
type Normalizer struct {
	rewrites map[string]string
}

func NewNormalizer(rewrites map[string]string) *Normalizer {
	table := make(map[string]string, len(rewrites))
	for from, to := range rewrites {
		table[strings.ToLower(from)] = strings.ToLower(to)
	}

	resolved := make(map[string]string, len(table))
	for from := range table {
		target, ok := resolveRewrite(table, from)
		if !ok || target == from {
			continue
		}
		resolved[from] = target
	}
	return &Normalizer{rewrites: resolved}
}

// resolveRewrite follows from through the table until it reaches a host that
// is not itself rewritten. Cycles report false.
func resolveRewrite(table map[string]string, from string) (string, bool) {
	seen := map[string]bool{from: true}
	cur := from
	for {
		next, ok := table[cur]
		if !ok {
			return cur, true
		}
		if seen[next] {
			return "", false
		}
		seen[next] = true
		cur = next
	}
}

func (n *Normalizer) Normalize(u models.SourceURL) models.SourceURL {
	if n == nil {
		return u
	}
	if to, ok := n.rewrites[u.Host()]; ok {
		return u.WithHost(to)
	}
	return u
}
