// Package picker implements the folder pickers used by repository/select.
package picker

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/lfsdesk/internal/domain/ports"
	"github.com/brianly1003/lfsdesk/internal/sync"
)

// Picker kinds accepted by New.
const (
	KindStatic = "static"
	KindPrompt = "prompt"
	KindDialog = "dialog"
)

// DefaultDialogCommand opens a native directory chooser on Linux desktops.
var DefaultDialogCommand = []string{"zenity", "--file-selection", "--directory", "--title=Select repository"}

// Options configures New.
type Options struct {
	Kind          string
	Path          string   // static
	DialogCommand []string // dialog
	In            io.Reader
	Out           io.Writer
}

// New builds the picker selected by opts.Kind.
func New(opts Options) (ports.FolderPicker, error) {
	switch opts.Kind {
	case KindStatic, "":
		return NewStatic(opts.Path), nil
	case KindPrompt:
		if opts.In == nil {
			return nil, errors.New("prompt picker needs an input reader")
		}
		return NewPrompt(opts.In, opts.Out), nil
	case KindDialog:
		cmd := opts.DialogCommand
		if len(cmd) == 0 {
			cmd = DefaultDialogCommand
		}
		return NewDialog(cmd[0], cmd[1:]...), nil
	default:
		return nil, fmt.Errorf("unknown picker kind: %s", opts.Kind)
	}
}

// Static always returns the same folder. An empty path behaves as a cancel.
type Static struct {
	path string
}

// NewStatic creates a Static picker.
func NewStatic(path string) *Static {
	return &Static{path: path}
}

// Pick returns the configured path.
func (s *Static) Pick(ctx context.Context) (string, bool, error) {
	if s.path == "" {
		return "", false, nil
	}
	return normalize(s.path), true, nil
}

// Prompt reads one folder path per Pick from a line-oriented reader, such as a terminal.
type Prompt struct {
	mu      sync.Mutex
	scanner *bufio.Scanner
	out     io.Writer
}

// NewPrompt creates a Prompt picker. out may be nil.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{scanner: bufio.NewScanner(in), out: out}
}

// Pick prints a prompt and reads a line. A blank line or end of input cancels.
func (p *Prompt) Pick(ctx context.Context) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.out != nil {
		fmt.Fprint(p.out, "Repository folder: ")
	}

	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", false, fmt.Errorf("failed to read folder: %w", err)
		}
		return "", false, nil
	}

	line := strings.TrimSpace(p.scanner.Text())
	if line == "" {
		return "", false, nil
	}
	return normalize(line), true, nil
}

// Dialog runs an external directory chooser and reads the folder from its stdout.
// Exit status 1 means the user closed the dialog.
type Dialog struct {
	command string
	args    []string
}

// NewDialog creates a Dialog picker.
func NewDialog(command string, args ...string) *Dialog {
	return &Dialog{command: command, args: args}
}

// Pick runs the dialog command.
func (d *Dialog) Pick(ctx context.Context) (string, bool, error) {
	cmd := exec.CommandContext(ctx, d.command, d.args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			log.Debug().Str("command", d.command).Msg("folder dialog cancelled")
			return "", false, nil
		}
		return "", false, fmt.Errorf("folder dialog %s: %w: %s", d.command, err, strings.TrimSpace(stderr.String()))
	}

	path := strings.TrimSpace(stdout.String())
	if path == "" {
		return "", false, nil
	}
	return normalize(path), true, nil
}

func normalize(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
