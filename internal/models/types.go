package models

// KnowledgeDoc is one keyword-tagged guidance document. It is a plain value:
// matching is a pure function over a slice of these.
type KnowledgeDoc struct {
	// Path is the absolute file path.
	Path string `json:"path"`
	// RelPath is Path relative to the guide root it was found under, slash separated.
	RelPath string `json:"rel_path"`
	// Root is the guide root the document was discovered in.
	Root string `json:"root"`
	// Keywords are the declared triggers, in declaration order.
	Keywords []string `json:"keywords"`
	// Body is the document text after the metadata block.
	Body string `json:"-"`
}
