// Package guide discovers keyword-tagged guidance documents and matches
// them against prompt text.
//
// Matching is a pure function over plain values: a document is a keyword
// list and a body, and adding a document needs no code change.
package guide

import (
	"strings"

	"github.com/dotcommander/cairn/internal/models"
)

// Hit is a matched document together with the first keyword that hit.
type Hit struct {
	Doc     models.KnowledgeDoc `json:"doc"`
	Keyword string              `json:"keyword"`
}

// Match returns every document with at least one keyword that occurs,
// case-insensitively, anywhere in prompt. There is no word-boundary check:
// "test" hits "unit tests" and also "contest". Each document appears at most
// once, documents with an identical body are reported once, and scan order is
// kept.
func Match(prompt string, docs []models.KnowledgeDoc) []Hit {
	if strings.TrimSpace(prompt) == "" {
		return nil
	}
	lowered := strings.ToLower(prompt)

	var hits []Hit
	bodies := make(map[string]struct{})
	for _, doc := range docs {
		kw, ok := MatchedKeyword(lowered, doc.Keywords)
		if !ok {
			continue
		}
		if _, dup := bodies[doc.Body]; dup {
			continue
		}
		bodies[doc.Body] = struct{}{}
		hits = append(hits, Hit{Doc: doc, Keyword: kw})
	}
	return hits
}

// MatchedKeyword returns the first keyword contained in loweredPrompt.
// Keywords are compared lowercased; blank keywords never match.
func MatchedKeyword(loweredPrompt string, keywords []string) (string, bool) {
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if strings.Contains(loweredPrompt, k) {
			return k, true
		}
	}
	return "", false
}
