// Package dumper obtains Swift AST dumps by running the compiler.
package dumper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tliron/commonlog"
)

// FilePlaceholder in a command is replaced by the source path.
const FilePlaceholder = "{file}"

// DefaultCommand dumps a single file without type checking imports.
var DefaultCommand = []string{"swiftc", "-dump-ast", "-parse-as-library", FilePlaceholder}

// ErrEmptyDump is returned when the compiler exits cleanly but prints nothing.
var ErrEmptyDump = errors.New("dumper: compiler produced no output")

// Dumper produces dump text for a source file.
type Dumper interface {
	Dump(ctx context.Context, path string) (string, error)
}

// Command runs an external compiler. The zero value uses DefaultCommand
// with no timeout.
type Command struct {
	Args    []string
	Timeout time.Duration
	Dir     string
	Env     []string
}

var log = commonlog.GetLogger("swiftast.dumper")

// NewCommand creates a Command for argv. An empty argv selects DefaultCommand.
func NewCommand(argv []string, timeout time.Duration) *Command {
	return &Command{Args: argv, Timeout: timeout}
}

// Argv returns the command line used for path.
func (c *Command) Argv(path string) []string {
	args := c.Args
	if len(args) == 0 {
		args = DefaultCommand
	}
	out := make([]string, 0, len(args)+1)
	replaced := false
	for _, a := range args {
		if strings.Contains(a, FilePlaceholder) {
			a = strings.ReplaceAll(a, FilePlaceholder, path)
			replaced = true
		}
		out = append(out, a)
	}
	if !replaced {
		out = append(out, path)
	}
	return out
}

// Dump runs the compiler on path and returns its dump. Older compilers
// print the dump on stderr, so stderr is used when stdout is empty.
func (c *Command) Dump(ctx context.Context, path string) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	argv := c.Argv(path)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = time.Second
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	log.Debugf("%s: %s in %s", filepath.Base(path), strings.Join(argv, " "), time.Since(start))
	if ctx.Err() != nil {
		return "", fmt.Errorf("dumping %s: %w", path, ctx.Err())
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("dumping %s: %w", path, err)
		}
		return "", fmt.Errorf("dumping %s: %w: %s", path, err, firstLine(msg))
	}

	if out := stdout.String(); strings.TrimSpace(out) != "" {
		return out, nil
	}
	if out := stderr.String(); strings.TrimSpace(out) != "" {
		return out, nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrEmptyDump)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// File reads dumps that were produced ahead of time. The dump for a.swift
// is expected at a.swift plus Ext, or at the path itself when it already
// has the extension.
type File struct {
	Ext string
}

// Dump reads the stored dump for path.
func (f File) Dump(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext := f.Ext
	if ext == "" {
		ext = ".astdump"
	}
	if filepath.Ext(path) != ext {
		path += ext
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading dump: %w", err)
	}
	return string(data), nil
}
