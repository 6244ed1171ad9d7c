// Package search provides a small, deterministic, concurrency-safe in-memory
// index over short help entries. It is intentionally dependency-free:
//
//   - No logging in the library (callers decide how/what to log)
//   - Unicode-aware tokenization with optional stop-word removal
//   - Immutable, read-only index after construction (safe for concurrent use)
//   - Deterministic scoring and sorting (stable order for ties)
//
// Scoring uses Jaccard similarity between the query token set and each
// entry's token set: score = |Q ∩ E| / |Q ∪ E|.
package search

import (
	"regexp"
	"sort"
	"strings"
)

// Entry is one searchable item: a stable key plus the text it is matched on.
type Entry struct {
	Key  string
	Text string
}

// Result is a ranked entry key with its similarity score.
type Result struct {
	Key   string
	Score float64
}

// Option configures index construction.
type Option func(*config)

type config struct {
	stopwords map[string]struct{}
}

// WithStopwords removes the given words from both entries and queries before
// scoring. Comparison is case-insensitive.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

type doc struct {
	key    string
	tokens map[string]struct{}
	tLen   int
}

// Index is an immutable token index over a fixed set of entries.
type Index struct {
	cfg  config
	docs []doc
}

// New builds an Index from entries. Entries with no indexable tokens are
// skipped.
func New(entries []Entry, opts ...Option) *Index {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	docs := make([]doc, 0, len(entries))
	for _, e := range entries {
		toks := tokenize(e.Text, cfg.stopwords)
		if len(toks) == 0 || e.Key == "" {
			continue
		}
		docs = append(docs, doc{key: e.Key, tokens: toks, tLen: len(toks)})
	}
	return &Index{cfg: cfg, docs: docs}
}

// TopK returns up to k best-matching entry keys by Jaccard similarity.
// Ties break toward the lexically smaller key so results are reproducible.
func (i *Index) TopK(query string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(query) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	qTokens := tokenize(query, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	buf := make([]Result, 0, len(i.docs))
	for _, d := range i.docs {
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(qLen + d.tLen - over)
		if union <= 0 {
			continue
		}
		buf = append(buf, Result{Key: d.key, Score: float64(over) / union})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].Score != buf[b].Score {
			return buf[a].Score > buf[b].Score
		}
		return buf[a].Key < buf[b].Key
	})

	if k > len(buf) {
		k = len(buf)
	}
	return buf[:k]
}

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	s = strings.ToLower(s)
	words := wordRE.FindAllString(s, -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
