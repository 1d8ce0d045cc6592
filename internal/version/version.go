// Package version provides build version information and runtime metadata.
package version

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

const gitTimeout = 2 * time.Second

var (
	// These are set via ldflags at build time
	Version = ""
	Commit  = ""
	Date    = ""

	execCommand = exec.CommandContext

	mu       sync.Mutex
	once     sync.Once
	resolved struct {
		version, commit, date string
	}
)

func ensureInitialized() {
	mu.Lock()
	defer mu.Unlock()
	once.Do(func() {
		resolved.version = Version
		resolved.commit = Commit
		resolved.date = Date
		if resolved.date == "" {
			resolved.date = time.Now().Format("2006-01-02")
		}
		if resolved.commit == "" {
			resolved.commit = gitOutput("unknown", "describe", "--always", "--dirty")
		}
		if resolved.version == "" {
			resolved.version = gitOutput("dev", "describe", "--tags", "--abbrev=0")
		}
	})
}

// gitOutput runs git with args and returns its trimmed output, or fallback
// when git fails or prints nothing.
func gitOutput(fallback string, args ...string) string {
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	cmd := execCommand(ctx, "git", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return fallback
	}
	if v := strings.TrimSpace(out.String()); v != "" {
		return v
	}
	return fallback
}

// Reset forgets resolved values so the next accessor resolves them again.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	once = sync.Once{}
	resolved.version, resolved.commit, resolved.date = "", "", ""
}

// GetVersion returns the release tag, or "dev".
func GetVersion() string {
	ensureInitialized()
	return resolved.version
}

// GetCommit returns the git commit, or "unknown".
func GetCommit() string {
	ensureInitialized()
	return resolved.commit
}

// GetDate returns the build date.
func GetDate() string {
	ensureInitialized()
	return resolved.date
}

// Info returns a one-line description of the build.
func Info() string {
	ensureInitialized()
	return fmt.Sprintf("aqb %s (commit: %s, built: %s, %s/%s)",
		resolved.version, resolved.commit, resolved.date, runtime.GOOS, runtime.GOARCH)
}
