package session

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Command pack for claude. Installed once into ~/.claude/commands so
// agents can signal session state through their output, which the
// monitor picks up via the sentinels.

const commandDone = `Wrap up the current session.

1. Summarize what you completed and anything left unfinished.
2. If there is a task file for this work, append a short progress note.
3. End your reply with this exact line so the session monitor marks the
   session as done:

/swarm:done
`

const commandNeedsInput = `Pause for operator input.

State the question or decision you are blocked on in one or two
sentences, then end your reply with this exact line so the session
monitor flags the session:

/swarm:needs_input
`

const commandLog = `Save progress to the task file.

Append a dated bullet list of what changed since the last log entry to
the task file for this work. Keep it under ten lines. Do not rewrite
earlier entries.
`

// CommandPack maps installed filenames to their content.
var CommandPack = map[string]string{
	"done.md":        commandDone,
	"needs-input.md": commandNeedsInput,
	"log.md":         commandLog,
}

// DefaultCommandsDir is where claude looks for user slash commands.
func DefaultCommandsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".claude", "commands"), nil
}

// InstallCommandPack writes the command files into dir, overwriting
// older copies so upgrades refresh them.
func InstallCommandPack(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create commands directory: %w", err)
	}
	for name, content := range CommandPack {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write command %s: %w", name, err)
		}
	}
	sessionLog.Info("command_pack_installed", slog.String("dir", dir))
	return nil
}
