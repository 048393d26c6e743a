// swiftast CLI - parse, index and serve Swift compiler AST dumps
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/swiftast/dump"
	"github.com/chazu/swiftast/dumper"
	"github.com/chazu/swiftast/manifest"
	"github.com/chazu/swiftast/pkg/ast"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	verbose := flag.Int("v", 0, "Log verbosity (0 = errors only, higher is noisier)")
	logFile := flag.String("log", "", "Write logs to this file instead of stderr")
	config := flag.String("C", ".", "Directory to search upward for "+manifest.FileName)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: swiftast [options] <command> [arguments]\n\n")
		fmt.Fprintf(os.Stderr, "Parses the output of swiftc -dump-ast into a typed AST.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n")
		fmt.Fprintf(os.Stderr, "  parse  <file>...     Print the outline, JSON or CBOR of each file\n")
		fmt.Fprintf(os.Stderr, "  index  [file]...     Dump, parse and store files in the index\n")
		fmt.Fprintf(os.Stderr, "  query  [filters]     List indexed declarations\n")
		fmt.Fprintf(os.Stderr, "  check  [file]...     Evaluate the CUE policy against files\n")
		fmt.Fprintf(os.Stderr, "  serve                Start the parse service (gRPC + Connect HTTP/JSON)\n")
		fmt.Fprintf(os.Stderr, "  lsp                  Start the language server on stdio\n")
		fmt.Fprintf(os.Stderr, "  remote <file>...     Parse files through a running parse service\n")
		fmt.Fprintf(os.Stderr, "\nFiles ending in .swift are dumped with the configured compiler; any other\n")
		fmt.Fprintf(os.Stderr, "file is read as dump text. \"-\" reads a dump from stdin.\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  swiftast parse Sources/App/main.swift\n")
		fmt.Fprintf(os.Stderr, "  swiftc -dump-ast a.swift 2>&1 | swiftast parse -format json -\n")
		fmt.Fprintf(os.Stderr, "  swiftast index && swiftast query -kind function -name scale\n")
	}
	flag.Parse()

	var logPath *string
	if *logFile != "" {
		logPath = logFile
	}
	commonlog.Configure(*verbose, logPath)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	m, err := loadManifest(*config)
	if err != nil {
		fatalf("Error loading manifest: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "parse":
		handleParseCommand(ctx, m, rest)
	case "index":
		handleIndexCommand(ctx, m, rest)
	case "query":
		handleQueryCommand(ctx, m, rest)
	case "check":
		handleCheckCommand(ctx, m, rest)
	case "serve":
		handleServeCommand(m, rest)
	case "lsp":
		handleLspCommand(m, rest)
	case "remote":
		handleRemoteCommand(ctx, m, rest)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
}

// loadManifest finds swiftast.toml above dir, falling back to defaults.
func loadManifest(dir string) (*manifest.Manifest, error) {
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = manifest.Default()
		m.Dir, err = filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// parseOptions builds parser options from the configuration.
func parseOptions(m *manifest.Manifest, strict bool) []dump.Option {
	return []dump.Option{
		dump.WithStrict(strict || m.Parse.Strict),
		dump.WithNoisePrefixes(m.Parse.NoisePrefixes...),
	}
}

// newDumper returns the configured compiler runner.
func newDumper(m *manifest.Manifest) *dumper.Command {
	timeout, err := m.CompilerTimeout()
	if err != nil {
		fatalf("Error: %v", err)
	}
	cmd := dumper.NewCommand(m.Compiler.Command, timeout)
	cmd.Dir = m.Dir
	return cmd
}

// readDump returns dump text for path: stdin for "-", the compiler's
// output for Swift sources, the file contents otherwise.
func readDump(ctx context.Context, d dumper.Dumper, path string) (string, error) {
	switch {
	case path == "-":
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	case strings.HasSuffix(path, ".swift"):
		return d.Dump(ctx, path)
	default:
		data, err := os.ReadFile(path)
		return string(data), err
	}
}

// parseFile reads and parses one input, reporting recovered errors on
// stderr.
func parseFile(ctx context.Context, d dumper.Dumper, path string, opts []dump.Option) (*ast.File, error) {
	text, err := readDump(ctx, d, path)
	if err != nil {
		return nil, err
	}
	res, err := dump.Parse(text, opts...)
	if err != nil {
		return nil, err
	}
	for _, diag := range res.Diagnostics {
		fmt.Fprintf(os.Stderr, "%s: warning: %v\n", path, diag)
	}
	if res.File.Path == "" {
		res.File.Path = sourcePath(path)
	}
	return res.File, nil
}

// sourcePath is the Swift file a dump input stands for.
func sourcePath(path string) string {
	if path == "-" {
		return ""
	}
	abs, err := filepath.Abs(strings.TrimSuffix(path, ".astdump"))
	if err != nil {
		return path
	}
	return abs
}

// inputFiles returns args, or the configured sources when args is empty.
func inputFiles(m *manifest.Manifest, args []string) []string {
	if len(args) > 0 {
		return args
	}
	files, err := m.SourceFiles()
	if err != nil {
		fatalf("Error: %v", err)
	}
	if len(files) == 0 {
		fatalf("No .swift files found in %s", strings.Join(m.SourceDirPaths(), ", "))
	}
	return files
}
