// Command memory-persistence handles the SessionStart, PreCompact and
// SessionEnd hooks.
//
// Usage:
//
//	memory-persistence [session-start|pre-compact|session-end]
//
// Without an argument the handler is chosen by the payload's hook_event_name.
package main

import (
	"fmt"
	"os"

	"github.com/dotcommander/cairn/internal/commands"
)

// version is set via ldflags: -X main.version=v1.0.0
var version = "dev"

func main() {
	sub := "dispatch"
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "session-start", "start":
			sub = "session-start"
		case "pre-compact", "compact":
			sub = "pre-compact"
		case "session-end", "end":
			sub = "session-end"
		default:
			fmt.Fprintf(os.Stderr, "memory-persistence: unknown phase %q\n", os.Args[1])
			os.Exit(1)
		}
	}
	os.Exit(commands.RunHook(version, sub))
}
