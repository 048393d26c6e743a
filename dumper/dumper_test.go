package dumper

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func TestArgv(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{nil, []string{"swiftc", "-dump-ast", "-parse-as-library", "/a.swift"}},
		{[]string{"xcrun", "swiftc", "-dump-ast"}, []string{"xcrun", "swiftc", "-dump-ast", "/a.swift"}},
		{[]string{"sh", "-c", "swiftc -dump-ast {file} 2>&1"}, []string{"sh", "-c", "swiftc -dump-ast /a.swift 2>&1"}},
	}
	for _, tt := range tests {
		got := NewCommand(tt.args, 0).Argv("/a.swift")
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Argv(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func TestCommandStdout(t *testing.T) {
	requireTool(t, "cat")
	path := filepath.Join(t.TempDir(), "a.astdump")
	if err := os.WriteFile(path, []byte("(source_file)\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := NewCommand([]string{"cat"}, time.Minute).Dump(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if out != "(source_file)\n" {
		t.Errorf("dump = %q", out)
	}
}

func TestCommandFallsBackToStderr(t *testing.T) {
	requireTool(t, "sh")
	cmd := NewCommand([]string{"sh", "-c", "echo '(source_file)' >&2", "{file}"}, time.Minute)

	out, err := cmd.Dump(context.Background(), "/unused.swift")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "(source_file)" {
		t.Errorf("dump = %q", out)
	}
}

func TestCommandFailure(t *testing.T) {
	requireTool(t, "sh")
	cmd := NewCommand([]string{"sh", "-c", "echo 'error: boom' >&2; exit 1", "{file}"}, time.Minute)

	_, err := cmd.Dump(context.Background(), "/a.swift")
	if err == nil || !strings.Contains(err.Error(), "error: boom") {
		t.Fatalf("error = %v, want compiler message", err)
	}
}

func TestCommandEmptyOutput(t *testing.T) {
	requireTool(t, "true")
	_, err := NewCommand([]string{"true"}, time.Minute).Dump(context.Background(), "/a.swift")
	if !errors.Is(err, ErrEmptyDump) {
		t.Fatalf("error = %v, want ErrEmptyDump", err)
	}
}

func TestCommandTimeout(t *testing.T) {
	requireTool(t, "sh")
	_, err := NewCommand([]string{"sh", "-c", "sleep 5", "{file}"}, 50*time.Millisecond).Dump(context.Background(), "/a.swift")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
}

func TestFileDumper(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.swift")
	if err := os.WriteFile(src+".astdump", []byte("(source_file)"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{src, src + ".astdump"} {
		out, err := File{}.Dump(context.Background(), path)
		if err != nil {
			t.Fatalf("Dump(%s): %v", path, err)
		}
		if out != "(source_file)" {
			t.Errorf("Dump(%s) = %q", path, out)
		}
	}

	if _, err := (File{}).Dump(context.Background(), filepath.Join(dir, "missing.swift")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing dump error = %v", err)
	}
}
