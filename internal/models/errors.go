package models

import "fmt"

// RecoverableError is implemented by enriched errors that carry structured
// context and remediation hints. Both the commands and output packages use
// this interface to avoid an import cycle.
type RecoverableError interface {
	error
	ErrorCode() string
	Context() map[string]string
	SuggestedAction() string
}

// ErrorKind classifies hook failures. Every kind is recovered locally; the
// kind only decides how the failure is logged.
type ErrorKind string

const (
	// KindInput covers malformed or missing payload fields.
	KindInput ErrorKind = "input"
	// KindStorage covers unreadable or unwritable state files.
	KindStorage ErrorKind = "storage"
	// KindCorpus covers malformed knowledge documents.
	KindCorpus ErrorKind = "corpus"
	// KindConfig covers configuration that prevents a hook from running at all.
	KindConfig ErrorKind = "config"
)

// HookError wraps a failure with its kind and the operation that hit it.
type HookError struct {
	Kind ErrorKind
	Op   string
	Path string
	Err  error
}

// NewHookError wraps err. Returns nil when err is nil.
func NewHookError(kind ErrorKind, op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &HookError{Kind: kind, Op: op, Path: path, Err: err}
}

func (e *HookError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Kind, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

func (e *HookError) ErrorCode() string {
	switch e.Kind {
	case KindInput:
		return "INPUT_ERROR"
	case KindStorage:
		return "STORAGE_ERROR"
	case KindCorpus:
		return "CORPUS_ERROR"
	default:
		return "CONFIG_ERROR"
	}
}

func (e *HookError) Context() map[string]string {
	ctx := map[string]string{"operation": e.Op}
	if e.Path != "" {
		ctx["path"] = e.Path
	}
	return ctx
}

func (e *HookError) SuggestedAction() string {
	switch e.Kind {
	case KindStorage:
		return "cairn doctor"
	case KindConfig:
		return "set CAIRN_STATE_DIR or --state-dir to a writable directory"
	default:
		return ""
	}
}

// SlogAttrs exposes the error's structure to slog.
func (e *HookError) SlogAttrs() []any {
	attrs := []any{"kind", string(e.Kind), "operation", e.Op}
	if e.Path != "" {
		attrs = append(attrs, "path", e.Path)
	}
	return attrs
}
