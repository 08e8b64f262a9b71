// Package lfs implements the Git LFS CLI wrapper used for listing files and managing locks.
package lfs

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/lfsdesk/internal/domain"
)

// Adapter implements ports.LFSAdapter by shelling out to `git lfs`.
type Adapter struct {
	command string
}

// NewAdapter creates an adapter that runs the given git binary.
func NewAdapter(command string) *Adapter {
	if command == "" {
		command = "git"
	}
	return &Adapter{command: command}
}

// Command returns the git binary the adapter runs.
func (a *Adapter) Command() string {
	return a.command
}

// IsRepository reports whether dir carries a .git marker.
// Worktrees and submodules use a .git file instead of a directory; both count.
func (a *Adapter) IsRepository(dir string) bool {
	if dir == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// ListTrackedFiles runs `git lfs ls-files -n`.
func (a *Adapter) ListTrackedFiles(ctx context.Context, repo string) ([]string, error) {
	out, err := a.run(ctx, repo, "ls-files", "ls-files", "-n")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// ListLocks runs `git lfs locks` and returns its lines unparsed.
func (a *Adapter) ListLocks(ctx context.Context, repo string) ([]string, error) {
	out, err := a.run(ctx, repo, "locks", "locks")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// AcquireLock runs `git lfs lock <path> --json`.
func (a *Adapter) AcquireLock(ctx context.Context, repo, path string) (domain.LockEntry, error) {
	out, err := a.run(ctx, repo, "lock", "lock", path, "--json")
	if err != nil {
		return domain.LockEntry{}, err
	}

	var entry domain.LockEntry
	if err := json.Unmarshal(bytes.TrimSpace(out), &entry); err != nil {
		log.Warn().Str("repo", repo).Str("path", path).Str("output", string(out)).Msg("unparseable lock payload")
		return domain.LockEntry{}, domain.NewAdapterError("lock", domain.ErrMalformedLockJSON, err.Error())
	}
	if _, err := entry.NumericID(); err != nil {
		return domain.LockEntry{}, domain.NewAdapterError("lock", domain.ErrMalformedLockJSON, err.Error())
	}
	if entry.Path == "" {
		entry.Path = path
	}

	return entry, nil
}

// ReleaseLock runs `git lfs unlock -i <id>`.
func (a *Adapter) ReleaseLock(ctx context.Context, repo string, id uint64) error {
	_, err := a.run(ctx, repo, "unlock", "unlock", "-i", strconv.FormatUint(id, 10))
	return err
}

// Version runs `git lfs version` and returns its first line.
func (a *Adapter) Version(ctx context.Context) (string, error) {
	out, err := a.run(ctx, "", "version", "version")
	if err != nil {
		return "", err
	}
	lines := splitLines(out)
	if len(lines) == 0 {
		return "", nil
	}
	return lines[0], nil
}

// run executes `git lfs <args...>` in repo and returns stdout.
func (a *Adapter) run(ctx context.Context, repo, op string, args ...string) ([]byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, a.command, append([]string{"lfs"}, args...)...)
	cmd.Dir = repo

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Debug().
			Str("op", op).
			Str("repo", repo).
			Str("stderr", strings.TrimSpace(stderr.String())).
			Err(err).
			Msg("git lfs failed")
		return nil, domain.NewAdapterError(op, err, stderr.String())
	}

	log.Debug().
		Str("op", op).
		Str("repo", repo).
		Dur("duration", time.Since(start)).
		Int("bytes", stdout.Len()).
		Msg("git lfs completed")

	return stdout.Bytes(), nil
}

// splitLines splits command output into non-blank lines, dropping CR from CRLF output.
func splitLines(out []byte) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
