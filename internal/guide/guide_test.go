package guide

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/cairn/internal/models"
)

func writeDoc(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func doc(rel string, body string, keywords ...string) models.KnowledgeDoc {
	return models.KnowledgeDoc{Path: "/guides/" + rel, RelPath: rel, Keywords: keywords, Body: body}
}

func TestMatch_UnitTestScenario(t *testing.T) {
	docs := []models.KnowledgeDoc{
		doc("testing.md", "Prefer table-driven tests.", "test", "jest", "unit test"),
		doc("containers.md", "Pin base images.", "docker", "kubernetes"),
	}

	hits := Match("help me write unit tests for this component", docs)
	require.Len(t, hits, 1)
	require.Equal(t, "testing.md", hits[0].Doc.RelPath)
	require.Equal(t, "test", hits[0].Keyword)

	out := Render(hits)
	require.Equal(t, 1, strings.Count(out, "Prefer table-driven tests."))
	require.NotContains(t, out, "Pin base images.")
}

func TestMatch_CaseInsensitiveSubstringWithoutWordBoundaries(t *testing.T) {
	docs := []models.KnowledgeDoc{doc("go.md", "go body", "GoLang")}

	require.Len(t, Match("Any GOLANGCI-lint tips?", docs), 1)
	require.Empty(t, Match("python only", docs))
}

func TestMatch_DocumentEmittedOnceWhenSeveralKeywordsHit(t *testing.T) {
	docs := []models.KnowledgeDoc{doc("testing.md", "body", "test", "unit test", "tests")}

	hits := Match("unit tests and more tests", docs)
	require.Len(t, hits, 1)
	require.Equal(t, 1, strings.Count(Render(hits), "body"))
}

func TestMatch_IdenticalBodiesEmittedOnce(t *testing.T) {
	docs := []models.KnowledgeDoc{
		doc("a/testing.md", "same body", "test"),
		doc("b/testing.md", "same body", "test"),
	}
	require.Len(t, Match("test", docs), 1)
}

func TestMatch_PreservesScanOrder(t *testing.T) {
	docs := []models.KnowledgeDoc{
		doc("b.md", "second", "deploy"),
		doc("a.md", "first", "deploy"),
	}
	hits := Match("deploy it", docs)
	require.Len(t, hits, 2)
	require.Equal(t, "b.md", hits[0].Doc.RelPath)
	require.Equal(t, "a.md", hits[1].Doc.RelPath)
}

func TestMatch_BlankKeywordsAndPromptNeverMatch(t *testing.T) {
	docs := []models.KnowledgeDoc{doc("x.md", "body", "", "   ")}
	require.Empty(t, Match("anything at all", docs))
	require.Empty(t, Match("   ", []models.KnowledgeDoc{doc("y.md", "body", "a")}))
}

func TestRender_EmptyAndLayout(t *testing.T) {
	require.Empty(t, Render(nil))

	out := Render([]Hit{{Doc: doc("testing.md", "Prefer table-driven tests.", "test"), Keyword: "test"}})
	require.Equal(t, "<injected-guide>\nYou MUST follow these guide instructions:\n\n## testing.md\n\nPrefer table-driven tests.\n</injected-guide>\n", out)
	require.NotContains(t, out, "keywords")
}

func TestPreview(t *testing.T) {
	require.Equal(t, "short", Preview("  short  ", 50))
	require.Equal(t, "abc...", Preview("abcdef", 3))
	require.Equal(t, "héé...", Preview("hééllo", 3))
}

func TestSplitFrontmatter(t *testing.T) {
	fm := SplitFrontmatter([]byte("---\nkeywords: [a]\n---\nbody\n"))
	require.Equal(t, FormatYAML, fm.Format)
	require.Equal(t, "keywords: [a]", string(fm.Frontmatter))
	require.Equal(t, "body\n", fm.Content)

	fm = SplitFrontmatter([]byte("\xef\xbb\xbf\n+++\r\nkeywords = [\"a\"]\r\n+++\r\nbody"))
	require.Equal(t, FormatTOML, fm.Format)
	require.Equal(t, "keywords = [\"a\"]", string(fm.Frontmatter))
	require.Equal(t, "body", fm.Content)

	fm = SplitFrontmatter([]byte("---\nkeywords: [a]\n----\nstill yaml\n---\nbody"))
	require.Equal(t, FormatYAML, fm.Format)
	require.Equal(t, "body", fm.Content)

	fm = SplitFrontmatter([]byte("---\nkeywords: [a]\nno closing fence"))
	require.False(t, fm.HasFrontmatter())

	fm = SplitFrontmatter([]byte("# Just markdown\n"))
	require.False(t, fm.HasFrontmatter())
	require.Equal(t, "# Just markdown\n", fm.Content)
}

func TestParseDocument_KeywordForms(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    []string
	}{
		{"yaml flow list", "---\nkeywords: [Test, jest, unit test]\n---\nbody", []string{"test", "jest", "unit test"}},
		{"yaml block list", "---\nname: x\nkeywords:\n  - docker\n  - docker\n  - k8s\n---\nbody", []string{"docker", "k8s"}},
		{"yaml comma string", "---\nkeywords: \"go, golang ,\"\n---\nbody", []string{"go", "golang"}},
		{"toml array", "+++\nkeywords = [\"sql\", \"postgres\"]\n+++\nbody", []string{"sql", "postgres"}},
		{"toml string", "+++\nkeywords = \"sql,db\"\n+++\nbody", []string{"sql", "db"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := ParseDocument("/g/x.md", "x.md", "/g", []byte(tc.content))
			require.NoError(t, err)
			require.Equal(t, tc.want, d.Keywords)
			require.Equal(t, "body", d.Body)
		})
	}
}

func TestParseDocument_Rejects(t *testing.T) {
	_, err := ParseDocument("p", "p", "r", []byte("no metadata here"))
	require.ErrorIs(t, err, ErrNoMetadata)

	_, err = ParseDocument("p", "p", "r", []byte("---\nname: x\n---\nbody"))
	require.ErrorIs(t, err, ErrNoKeywords)

	_, err = ParseDocument("p", "p", "r", []byte("---\nkeywords: [\"\", \" \"]\n---\nbody"))
	require.ErrorIs(t, err, ErrNoKeywords)

	_, err = ParseDocument("p", "p", "r", []byte("---\nkeywords: [unclosed\n---\nbody"))
	require.Error(t, err)

	_, err = ParseDocument("p", "p", "r", []byte("---\nkeywords:\n  nested: map\n---\nbody"))
	require.Error(t, err)

	_, err = ParseDocument("p", "p", "r", []byte("+++\nkeywords = [1, 2]\n+++\nbody"))
	require.Error(t, err)
}

func TestDiscover_SkipsBrokenDocumentsWithoutAffectingOthers(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "testing.md", "---\nkeywords: [test, jest, unit test]\n---\nPrefer table-driven tests.\n")
	writeDoc(t, root, "broken.md", "---\nkeywords: [oops\n---\nnever shown\n")
	writeDoc(t, root, "plain.md", "# no metadata\n")
	writeDoc(t, root, "nested/containers.md", "---\nkeywords: [docker, kubernetes]\n---\nPin base images.\n")
	writeDoc(t, root, "notes.txt", "---\nkeywords: [test]\n---\nnot markdown\n")
	writeDoc(t, root, ".git/hidden.md", "---\nkeywords: [test]\n---\nhidden\n")

	corpus, err := Discover([]string{root}, "**.md")
	require.NoError(t, err)

	var rels []string
	for _, d := range corpus.Docs {
		rels = append(rels, d.RelPath)
	}
	require.Equal(t, []string{"nested/containers.md", "testing.md"}, rels)
	require.Len(t, corpus.Skipped, 2)

	hits := Match("help me write unit tests for this component", corpus.Docs)
	require.Len(t, hits, 1)
	require.Equal(t, "testing.md", hits[0].Doc.RelPath)
	require.Equal(t, "Prefer table-driven tests.", hits[0].Doc.Body)
}

func TestDiscover_MissingRootIsSilent(t *testing.T) {
	corpus, err := Discover([]string{filepath.Join(t.TempDir(), "missing"), ""}, "**.md")
	require.NoError(t, err)
	require.Empty(t, corpus.Docs)
	require.Empty(t, corpus.Skipped)
}

func TestDiscover_InvalidPattern(t *testing.T) {
	_, err := Discover([]string{t.TempDir()}, "[")
	require.Error(t, err)
}

func TestDiscover_PatternScopesToSubdirectory(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "agents/a.md", "---\nkeywords: [a]\n---\na\n")
	writeDoc(t, root, "other/b.md", "---\nkeywords: [b]\n---\nb\n")

	corpus, err := Discover([]string{root}, "agents/*.md")
	require.NoError(t, err)
	require.Len(t, corpus.Docs, 1)
	require.Equal(t, "agents/a.md", corpus.Docs[0].RelPath)
}

func TestDiscover_MultipleRootsDedupeSymlinkedFiles(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	first := t.TempDir()
	second := t.TempDir()
	target := writeDoc(t, first, "shared.md", "---\nkeywords: [shared]\n---\nshared body\n")
	require.NoError(t, os.Symlink(target, filepath.Join(second, "shared.md")))
	writeDoc(t, second, "own.md", "---\nkeywords: [own]\n---\nown body\n")

	outside := t.TempDir()
	writeDoc(t, outside, "loop.md", "---\nkeywords: [loop]\n---\nloop body\n")
	require.NoError(t, os.Symlink(outside, filepath.Join(second, "linked-dir")))

	corpus, err := Discover([]string{first, second}, "**.md")
	require.NoError(t, err)
	require.Len(t, corpus.Docs, 2)
	require.Equal(t, "shared.md", corpus.Docs[0].RelPath)
	require.Equal(t, "own.md", corpus.Docs[1].RelPath)
}
