// Package prompts serves the default system and user prompts sent with
// QA requests. Embedded copies ship with the binary; an optional prompts
// directory overrides them and is hot-reloaded on change.
package prompts

import (
	"context"
	"embed"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

//go:embed defaults/*.txt
var defaultsFS embed.FS

const (
	systemPromptFile = "default_system_prompt.txt"
	userPromptFile   = "default_user_prompt.txt"
)

// Library holds the current prompt texts. Safe for concurrent readers
// while Watch reloads in the background.
type Library struct {
	dir string

	mu     sync.RWMutex
	system string
	user   string
}

// NewLibrary loads the embedded defaults and, when dir is non-empty,
// applies any overrides found there.
func NewLibrary(dir string) *Library {
	l := &Library{dir: dir}
	l.reload()
	return l
}

// System returns the current default system prompt.
func (l *Library) System() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.system
}

// User returns the current default user prompt.
func (l *Library) User() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.user
}

// reload recomputes both prompts from the embedded copies plus any
// directory overrides. Removing an override file reverts to the
// embedded text on the next reload.
func (l *Library) reload() {
	system := embeddedPrompt(systemPromptFile)
	user := embeddedPrompt(userPromptFile)

	if l.dir != "" {
		if v := overridePrompt(l.dir, systemPromptFile); v != "" {
			system = v
		}
		if v := overridePrompt(l.dir, userPromptFile); v != "" {
			user = v
		}
	}

	l.mu.Lock()
	l.system = system
	l.user = user
	l.mu.Unlock()
}

// Watch reloads prompts whenever the override directory changes. Blocks
// until ctx is done; returns nil when there is no directory to watch.
func (l *Library) Watch(ctx context.Context) error {
	if l.dir == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(l.dir); err != nil {
		return err
	}
	slog.Info("watching prompts directory", "dir", l.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isPromptFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				l.reload()
				slog.Info("prompts reloaded", "file", filepath.Base(ev.Name))
			}
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("prompts watcher", "error", werr)
		}
	}
}

func isPromptFile(path string) bool {
	base := filepath.Base(path)
	return base == systemPromptFile || base == userPromptFile
}

func embeddedPrompt(name string) string {
	content, err := defaultsFS.ReadFile("defaults/" + name)
	if err != nil {
		// Embedded files are part of the binary; missing means a build bug.
		slog.Error("embedded prompt missing", "file", name, "error", err)
		return ""
	}
	return strings.TrimSpace(string(content))
}

// overridePrompt returns the trimmed file content, or "" when the file
// is absent or blank (blank overrides do not take effect).
func overridePrompt(dir, name string) string {
	content, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(content))
}
