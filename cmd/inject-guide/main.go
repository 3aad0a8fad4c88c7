// Command inject-guide is the UserPromptSubmit hook. It is equivalent to
// `cairn hook prompt`.
package main

import (
	"os"

	"github.com/dotcommander/cairn/internal/commands"
)

// version is set via ldflags: -X main.version=v1.0.0
var version = "dev"

func main() {
	os.Exit(commands.RunHook(version, "prompt"))
}
