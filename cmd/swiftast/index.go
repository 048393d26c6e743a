package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/swiftast/dump"
	"github.com/chazu/swiftast/manifest"
	"github.com/chazu/swiftast/store"
)

func openStore(m *manifest.Manifest) *store.Store {
	s, err := store.Open(m.Store.Driver, m.StorePath())
	if err != nil {
		fatalf("Error opening index: %v", err)
	}
	return s
}

// handleIndexCommand processes the `swiftast index` subcommand. Files are
// dumped and parsed in parallel; unchanged dumps are skipped.
func handleIndexCommand(ctx context.Context, m *manifest.Manifest, args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	jobs := fs.Int("j", runtime.NumCPU(), "Number of files processed in parallel")
	force := fs.Bool("force", false, "Reindex files whose dump is unchanged")
	strict := fs.Bool("strict", false, "Fail on the first structural or format error")
	fs.Parse(args)

	files := inputFiles(m, fs.Args())
	s := openStore(m)
	defer s.Close()

	run, err := s.BeginRun(ctx)
	if err != nil {
		fatalf("Error: %v", err)
	}

	d := newDumper(m)
	opts := parseOptions(m, *strict)
	var indexed, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*jobs, 1))
	for _, path := range files {
		g.Go(func() error {
			text, err := readDump(gctx, d, path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
				failed.Add(1)
				return nil
			}
			src := sourcePath(path)
			digest := store.Digest(text)
			if !*force {
				if prev, err := s.FileDigest(gctx, src); err == nil && prev == digest {
					skipped.Add(1)
					return nil
				}
			}

			res, err := dump.Parse(text, opts...)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
				failed.Add(1)
				return nil
			}
			res.File.Path = src
			if err := run.Put(gctx, res.File, digest, len(res.Diagnostics)); err != nil {
				return err
			}
			indexed.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fatalf("Error: %v", err)
	}
	if err := run.Finish(ctx); err != nil {
		fatalf("Error: %v", err)
	}

	fmt.Printf("Indexed %d files (%d unchanged, %d failed) into %s\n",
		indexed.Load(), skipped.Load(), failed.Load(), m.StorePath())
	if failed.Load() > 0 {
		os.Exit(1)
	}
}

// handleQueryCommand processes the `swiftast query` subcommand.
func handleQueryCommand(ctx context.Context, m *manifest.Manifest, args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	var filter store.Filter
	fs.StringVar(&filter.Kind, "kind", "", "Declaration kind (struct, class, enum, extension, function, variable, import)")
	fs.StringVar(&filter.Name, "name", "", "Name prefix")
	fs.StringVar(&filter.Access, "access", "", "Access level")
	fs.StringVar(&filter.Path, "file", "", "Restrict to one source file")
	fs.Parse(args)

	if filter.Path != "" {
		filter.Path = sourcePath(filter.Path)
	}

	s := openStore(m)
	defer s.Close()

	decls, err := s.Query(ctx, filter)
	if err != nil {
		fatalf("Error: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, d := range decls {
		name := d.Name
		if d.Parent != "" {
			name = d.Parent + "." + name
		}
		fmt.Fprintf(w, "%s:%d\t%s\t%s\t%s\n", d.Path, d.Line, d.Kind, d.Access, name)
	}
	w.Flush()
}
