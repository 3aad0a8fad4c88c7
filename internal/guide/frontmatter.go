package guide

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format identifies the metadata block syntax.
type Format int

const (
	FormatNone Format = iota
	FormatYAML
	FormatTOML
)

// FrontmatterResult contains the parsed frontmatter and remaining content.
type FrontmatterResult struct {
	// Frontmatter contains the raw metadata bytes, delimiters stripped.
	Frontmatter []byte
	// Content contains the remaining content after frontmatter.
	Content string
	// Format tells which delimiter opened the block.
	Format Format
}

// HasFrontmatter reports whether a metadata block was found.
func (f FrontmatterResult) HasFrontmatter() bool { return f.Format != FormatNone }

var (
	// ErrNoMetadata is returned for documents without a leading metadata block.
	ErrNoMetadata = errors.New("no metadata block")
	// ErrNoKeywords is returned when the metadata block declares no usable keywords.
	ErrNoKeywords = errors.New("metadata declares no keywords")
)

// SplitFrontmatter extracts a leading metadata block. "---" fences YAML,
// "+++" fences TOML. Leading blank lines and a UTF-8 BOM are ignored.
// A block without a closing fence is not a block.
func SplitFrontmatter(content []byte) FrontmatterResult {
	trimmed := bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	trimmed = bytes.TrimLeft(trimmed, " \t\r\n")

	switch {
	case hasFence(trimmed, "---"):
		return extractFrontmatter(trimmed, "---", FormatYAML, content)
	case hasFence(trimmed, "+++"):
		return extractFrontmatter(trimmed, "+++", FormatTOML, content)
	default:
		return FrontmatterResult{Content: string(content)}
	}
}

func hasFence(content []byte, delim string) bool {
	return bytes.HasPrefix(content, []byte(delim+"\n")) || bytes.HasPrefix(content, []byte(delim+"\r\n"))
}

func extractFrontmatter(content []byte, delim string, format Format, original []byte) FrontmatterResult {
	remaining := content[len(delim):]
	remaining = bytes.TrimPrefix(remaining, []byte("\r"))
	remaining = bytes.TrimPrefix(remaining, []byte("\n"))

	// Empty block: ---\n---
	if rest, ok := closingFence(remaining, delim); ok {
		return FrontmatterResult{Frontmatter: []byte{}, Content: string(rest), Format: format}
	}

	// The closing fence must sit alone on its line; "----" or "---x" do not close.
	offset := 0
	for {
		idx := bytes.Index(remaining[offset:], []byte("\n"+delim))
		if idx < 0 {
			return FrontmatterResult{Content: string(original)}
		}
		idx += offset
		if rest, ok := closingFence(remaining[idx+1:], delim); ok {
			block := bytes.ReplaceAll(remaining[:idx], []byte("\r\n"), []byte("\n"))
			return FrontmatterResult{
				Frontmatter: bytes.TrimRight(block, "\r"),
				Content:     string(rest),
				Format:      format,
			}
		}
		offset = idx + 1
	}
}

// closingFence reports whether line starts with delim followed only by
// whitespace up to the end of the line, and returns what follows that line.
func closingFence(line []byte, delim string) ([]byte, bool) {
	if !bytes.HasPrefix(line, []byte(delim)) {
		return nil, false
	}
	after := line[len(delim):]
	nl := bytes.IndexByte(after, '\n')
	if nl < 0 {
		if len(bytes.TrimSpace(after)) != 0 {
			return nil, false
		}
		return nil, true
	}
	if len(bytes.TrimSpace(after[:nl])) != 0 {
		return nil, false
	}
	return after[nl+1:], true
}

// metadata is the subset of a document's metadata block the matcher reads.
type metadata struct {
	Keywords keywordList `yaml:"keywords" toml:"keywords"`
}

// keywordList accepts either a list of strings or one comma-separated string.
type keywordList []string

func (k *keywordList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*k = splitKeywords(node.Value)
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*k = list
		return nil
	default:
		return fmt.Errorf("keywords: expected string or list, got %s", nodeKindName(node.Kind))
	}
}

func (k *keywordList) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		*k = splitKeywords(v)
		return nil
	case []any:
		list := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("keywords: expected strings, got %T", item)
			}
			list = append(list, s)
		}
		*k = list
		return nil
	default:
		return fmt.Errorf("keywords: expected string or array, got %T", data)
	}
}

func splitKeywords(raw string) []string {
	return strings.Split(raw, ",")
}

func nodeKindName(k yaml.Kind) string {
	switch k {
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	default:
		return "unknown"
	}
}

// parseMetadata decodes a metadata block and returns its normalized keywords:
// trimmed, lowercased, blanks and duplicates removed, order kept.
func parseMetadata(fm FrontmatterResult) ([]string, error) {
	if !fm.HasFrontmatter() {
		return nil, ErrNoMetadata
	}

	var meta metadata
	switch fm.Format {
	case FormatYAML:
		if err := yaml.Unmarshal(fm.Frontmatter, &meta); err != nil {
			return nil, fmt.Errorf("parse yaml metadata: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(fm.Frontmatter), &meta); err != nil {
			return nil, fmt.Errorf("parse toml metadata: %w", err)
		}
	}

	keywords := normalizeKeywords(meta.Keywords)
	if len(keywords) == 0 {
		return nil, ErrNoKeywords
	}
	return keywords, nil
}

func normalizeKeywords(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, k := range raw {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
