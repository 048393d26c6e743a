package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/chazu/swiftast/dump"
	"github.com/chazu/swiftast/manifest"
	"github.com/chazu/swiftast/pkg/ast"
)

// handleParseCommand processes the `swiftast parse` subcommand.
// Usage:
//
//	swiftast parse Sources/App/main.swift      # outline
//	swiftast parse -format json a.astdump      # JSON tree
//	swiftast parse -format cbor -o a.cbor -    # CBOR from stdin
func handleParseCommand(ctx context.Context, m *manifest.Manifest, args []string) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	format := fs.String("format", "outline", "Output format: outline, json or cbor")
	exprs := fs.Bool("exprs", false, "Include expressions in the outline")
	strict := fs.Bool("strict", false, "Fail on the first structural or format error")
	output := fs.String("o", "", "Write output to this file instead of stdout")
	fs.Parse(args)

	if fs.NArg() == 0 {
		fatalf("Error: parse requires at least one file")
	}
	switch *format {
	case "outline", "json", "cbor":
	default:
		fatalf("Error: unknown format %q", *format)
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer f.Close()
		out = f
	}

	d := newDumper(m)
	opts := parseOptions(m, *strict)
	failed := false
	for _, path := range fs.Args() {
		text, err := readDump(ctx, d, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
			continue
		}
		res, err := dump.Parse(text, opts...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
			continue
		}
		if res.File.Path == "" {
			res.File.Path = sourcePath(path)
		}
		for _, diag := range res.Diagnostics {
			fmt.Fprintf(os.Stderr, "%s: warning: %v\n", path, diag)
		}
		if err := writeResult(out, *format, *exprs, res); err != nil {
			fatalf("Error writing %s: %v", path, err)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func writeResult(out io.Writer, format string, exprs bool, res *dump.Result) error {
	switch format {
	case "json":
		diags := make([]string, 0, len(res.Diagnostics))
		for _, d := range res.Diagnostics {
			diags = append(diags, d.Error())
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"path":        res.File.Path,
			"statements":  ast.Values(res.File.Statements),
			"diagnostics": diags,
		})
	case "cbor":
		data, err := ast.MarshalFile(res.File)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	default:
		_, err := fmt.Fprint(out, Outline(res.File, exprs))
		return err
	}
}
