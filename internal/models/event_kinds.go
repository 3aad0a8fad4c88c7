package models

// Host lifecycle event names, as sent in hook_event_name.
const (
	HookEventUserPromptSubmit = "UserPromptSubmit"
	HookEventPreToolUse       = "PreToolUse"
	HookEventPreCompact       = "PreCompact"
	HookEventSessionStart     = "SessionStart"
	HookEventSessionEnd       = "SessionEnd"
)
