package actions

import (
	"github.com/dotcommander/cairn/internal/guide"
)

// GuideInjection is the outcome of matching one prompt against the guide
// corpus.
type GuideInjection struct {
	Scanned int             `json:"scanned"`
	Matched []GuideMatch    `json:"matched"`
	Skipped []guide.Skipped `json:"skipped,omitempty"`
	Context string          `json:"context"`
}

// GuideMatch names a matched document and the keyword that selected it.
type GuideMatch struct {
	Path    string `json:"path"`
	RelPath string `json:"rel_path"`
	Keyword string `json:"keyword"`
}

// InjectGuide scans roots for documents selected by pattern and renders the
// bodies of every document matching prompt. Missing roots and broken
// documents are not errors; the only error is an invalid pattern.
func InjectGuide(prompt string, roots []string, pattern string) (*GuideInjection, error) {
	corpus, err := guide.Discover(roots, pattern)
	if err != nil {
		return nil, err
	}

	hits := guide.Match(prompt, corpus.Docs)
	res := &GuideInjection{
		Scanned: len(corpus.Docs),
		Matched: make([]GuideMatch, 0, len(hits)),
		Skipped: corpus.Skipped,
		Context: guide.Render(hits),
	}
	for _, h := range hits {
		res.Matched = append(res.Matched, GuideMatch{Path: h.Doc.Path, RelPath: h.Doc.RelPath, Keyword: h.Keyword})
	}
	return res, nil
}

// ListGuides returns the discovered corpus without matching.
func ListGuides(roots []string, pattern string) (guide.Corpus, error) {
	return guide.Discover(roots, pattern)
}
