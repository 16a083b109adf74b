package embed

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Matcher scores a text against per-category reference phrases by maximum
// cosine similarity. Reference phrase vectors are encoded once at
// construction and reused for every dispute in a run. A matcher whose
// encoder failed (or was never configured) degrades to 0.0 for every
// category; degradation is logged as a warning once, never returned as an
// error.
type Matcher struct {
	enc      Encoder
	vectors  map[string][][]float64
	logger   zerolog.Logger
	warnOnce sync.Once
}

// Disabled returns a matcher that always scores zero, for deployments
// without an embedding backend.
func Disabled() *Matcher {
	return &Matcher{}
}

// NewMatcher encodes every reference phrase up front. If the encoder cannot
// serve the initial batch the matcher comes up disabled instead of failing
// the caller.
func NewMatcher(ctx context.Context, enc Encoder, phrases map[string][]string, logger zerolog.Logger) *Matcher {
	m := &Matcher{logger: logger}

	var texts []string
	var keys []string
	for cat, list := range phrases {
		for _, p := range list {
			keys = append(keys, strings.ToUpper(cat))
			texts = append(texts, p)
		}
	}
	if len(texts) == 0 {
		return m
	}

	vecs, err := enc.Encode(ctx, texts)
	if err != nil {
		logger.Warn().Err(err).Msg("embedding model unavailable, semantic scoring disabled")
		return m
	}

	m.enc = enc
	m.vectors = make(map[string][][]float64, len(phrases))
	for i, v := range vecs {
		m.vectors[keys[i]] = append(m.vectors[keys[i]], v)
	}
	return m
}

// Enabled reports whether semantic scoring contributes at all.
func (m *Matcher) Enabled() bool {
	return m.enc != nil && len(m.vectors) > 0
}

// Scores returns the max cosine similarity per category. Any failure to
// encode the text degrades to zeros for this call.
func (m *Matcher) Scores(ctx context.Context, text string) map[string]float64 {
	out := make(map[string]float64, len(m.vectors))
	for cat := range m.vectors {
		out[cat] = 0
	}
	if !m.Enabled() {
		return out
	}

	vecs, err := m.enc.Encode(ctx, []string{text})
	if err != nil || len(vecs) != 1 {
		m.warnOnce.Do(func() {
			m.logger.Warn().Err(err).Msg("embedding scoring failed, degrading to zero contribution")
		})
		return out
	}

	tv := vecs[0]
	for cat, phraseVecs := range m.vectors {
		best := 0.0
		for _, pv := range phraseVecs {
			if c := Cosine(tv, pv); c > best {
				best = c
			}
		}
		out[cat] = best
	}
	return out
}
