package guide

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/dotcommander/cairn/internal/models"
)

// maxDocBytes caps how much of a single guide file is read.
const maxDocBytes = 1 << 20

var errTooLarge = errors.New("file exceeds size limit")

// Skipped is a file or root that was passed over during discovery.
type Skipped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Corpus is the result of one discovery scan.
type Corpus struct {
	Docs    []models.KnowledgeDoc `json:"docs"`
	Skipped []Skipped             `json:"skipped,omitempty"`
}

// Discover walks each root in order and loads every file whose
// root-relative, slash-separated path matches pattern. Roots that do not
// exist are skipped silently; unreadable files and files without usable
// keywords are reported in Skipped. Hidden directories are not entered.
// Symlinked files are followed, symlinked directories are not.
//
// The only error is an invalid pattern.
func Discover(roots []string, pattern string) (Corpus, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return Corpus{}, fmt.Errorf("compile guide pattern %q: %w", pattern, err)
	}

	var corpus Corpus
	seen := make(map[string]struct{})

	for _, root := range roots {
		if strings.TrimSpace(root) == "" {
			continue
		}
		realRoot, err := filepath.EvalSymlinks(root)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				corpus.Skipped = append(corpus.Skipped, Skipped{Path: root, Reason: "unreadable root", Err: err})
			}
			continue
		}
		info, err := os.Stat(realRoot)
		if err != nil || !info.IsDir() {
			corpus.Skipped = append(corpus.Skipped, Skipped{Path: root, Reason: "not a directory", Err: err})
			continue
		}

		walkErr := filepath.WalkDir(realRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				corpus.Skipped = append(corpus.Skipped, Skipped{Path: path, Reason: "unreadable", Err: err})
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != realRoot && strings.HasPrefix(d.Name(), ".") {
					return fs.SkipDir
				}
				return nil
			}

			rel, err := filepath.Rel(realRoot, path)
			if err != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)
			if !g.Match(rel) {
				return nil
			}

			target, ok := regularTarget(path, d)
			if !ok {
				return nil
			}
			if _, dup := seen[target]; dup {
				return nil
			}
			seen[target] = struct{}{}

			doc, err := loadDocument(path, rel, realRoot)
			if err != nil {
				corpus.Skipped = append(corpus.Skipped, Skipped{Path: path, Reason: skipReason(err), Err: err})
				return nil
			}
			corpus.Docs = append(corpus.Docs, doc)
			return nil
		})
		if walkErr != nil {
			corpus.Skipped = append(corpus.Skipped, Skipped{Path: root, Reason: "walk failed", Err: walkErr})
		}
	}
	return corpus, nil
}

// regularTarget resolves path to the regular file it names, following a
// symlink if needed, and returns its real path for deduplication.
func regularTarget(path string, d fs.DirEntry) (string, bool) {
	if d.Type()&fs.ModeSymlink == 0 {
		if !d.Type().IsRegular() {
			return "", false
		}
		return path, true
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", false
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return resolved, true
}

func loadDocument(path, rel, root string) (models.KnowledgeDoc, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from walking a configured guide root
	if err != nil {
		return models.KnowledgeDoc{}, err
	}
	defer func() { _ = f.Close() }()

	content, err := readLimited(f, maxDocBytes)
	if err != nil {
		return models.KnowledgeDoc{}, err
	}
	return ParseDocument(path, rel, root, content)
}

// ParseDocument builds a KnowledgeDoc from raw file content. Documents with
// no metadata block, a malformed one, or no keywords are rejected.
func ParseDocument(path, rel, root string, content []byte) (models.KnowledgeDoc, error) {
	fm := SplitFrontmatter(content)
	keywords, err := parseMetadata(fm)
	if err != nil {
		return models.KnowledgeDoc{}, err
	}
	return models.KnowledgeDoc{
		Path:     path,
		RelPath:  rel,
		Root:     root,
		Keywords: keywords,
		Body:     strings.TrimSpace(fm.Content),
	}, nil
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, ErrNoMetadata):
		return "no metadata block"
	case errors.Is(err, ErrNoKeywords):
		return "no keywords"
	case errors.Is(err, errTooLarge):
		return "too large"
	case errors.Is(err, fs.ErrPermission):
		return "permission denied"
	default:
		var perr *fs.PathError
		if errors.As(err, &perr) {
			return "unreadable"
		}
		return "malformed metadata"
	}
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errTooLarge
	}
	return b, nil
}
