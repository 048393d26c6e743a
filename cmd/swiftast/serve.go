package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chazu/swiftast/manifest"
	"github.com/chazu/swiftast/server"
)

// handleServeCommand starts the parse service and blocks until interrupted.
func handleServeCommand(m *manifest.Manifest, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", m.Server.Port, "Port to listen on")
	policyFile := fs.String("policy", "", "CUE policy file enabling Check (default from "+manifest.FileName+")")
	fs.Parse(args)

	opts := []server.ServerOption{server.WithParseOptions(parseOptions(m, false)...)}
	if *policyFile != "" || m.Policy.File != "" {
		opts = append(opts, server.WithPolicy(loadPolicy(m, *policyFile)))
	}
	srv := server.New(opts...)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		srv.Stop()
	}()

	if err := srv.ListenAndServe(fmt.Sprintf(":%d", *port)); err != nil {
		fatalf("Server error: %v", err)
	}
}

// handleLspCommand runs the language server over stdio.
func handleLspCommand(m *manifest.Manifest, args []string) {
	fs := flag.NewFlagSet("lsp", flag.ExitOnError)
	fs.Parse(args)

	lsp := server.NewLSP(newDumper(m), parseOptions(m, false)...)
	if err := lsp.Run(); err != nil {
		fatalf("LSP error: %v", err)
	}
}

// handleRemoteCommand parses files through a running parse service and
// prints each response as JSON.
func handleRemoteCommand(ctx context.Context, m *manifest.Manifest, args []string) {
	fs := flag.NewFlagSet("remote", flag.ExitOnError)
	addr := fs.String("addr", fmt.Sprintf("localhost:%d", m.Server.Port), "Address of the parse service")
	check := fs.Bool("check", false, "Call Check instead of Parse")
	strict := fs.Bool("strict", false, "Ask the service for a strict parse")
	fs.Parse(args)

	if fs.NArg() == 0 {
		fatalf("Error: remote requires at least one file")
	}

	client, err := server.Dial(*addr)
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer client.Close()

	d := newDumper(m)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, path := range fs.Args() {
		text, err := readDump(ctx, d, path)
		if err != nil {
			fatalf("%s: %v", path, err)
		}
		var resp map[string]any
		if *check {
			resp, err = client.Check(ctx, text, sourcePath(path))
		} else {
			resp, err = client.Parse(ctx, text, sourcePath(path), *strict)
		}
		if err != nil {
			fatalf("%s: %v", path, err)
		}
		if err := enc.Encode(resp); err != nil {
			fatalf("Error: %v", err)
		}
	}
}
