package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/chazu/swiftast/manifest"
	"github.com/chazu/swiftast/pkg/ast"
	"github.com/chazu/swiftast/policy"
)

func loadPolicy(m *manifest.Manifest, override string) *policy.Policy {
	path := override
	if path == "" {
		path = m.Resolve(m.Policy.File)
	}
	if path == "" {
		fatalf("Error: no policy file configured (set [policy] file in %s or pass -policy)", manifest.FileName)
	}
	p, err := policy.Load(path)
	if err != nil {
		fatalf("Error: %v", err)
	}
	return p
}

// handleCheckCommand processes the `swiftast check` subcommand. Without
// file arguments every indexed file is checked.
func handleCheckCommand(ctx context.Context, m *manifest.Manifest, args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	policyFile := fs.String("policy", "", "CUE policy file (default from "+manifest.FileName+")")
	fs.Parse(args)

	p := loadPolicy(m, *policyFile)

	var files []*ast.File
	if fs.NArg() > 0 {
		d := newDumper(m)
		opts := parseOptions(m, false)
		for _, path := range fs.Args() {
			f, err := parseFile(ctx, d, path, opts)
			if err != nil {
				fatalf("%s: %v", path, err)
			}
			files = append(files, f)
		}
	} else {
		s := openStore(m)
		defer s.Close()
		paths, err := s.Files(ctx)
		if err != nil {
			fatalf("Error: %v", err)
		}
		for _, path := range paths {
			f, err := s.Load(ctx, path)
			if err != nil {
				fatalf("Error: %v", err)
			}
			files = append(files, f)
		}
	}

	count := 0
	for _, f := range files {
		for _, v := range p.Check(f) {
			fmt.Println(v)
			count++
		}
	}
	if count > 0 {
		fmt.Fprintf(os.Stderr, "%d policy violations in %d files\n", count, len(files))
		os.Exit(1)
	}
}
