// Package server exposes the dump parser over Connect/gRPC and as a
// language server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/swiftast/dump"
	"github.com/chazu/swiftast/pkg/ast"
	"github.com/chazu/swiftast/policy"
	"github.com/chazu/swiftast/store"
)

// Procedure paths of the parse service. Messages are google.protobuf.Struct
// so any Connect, gRPC or gRPC-Web client can call them without generated
// stubs.
const (
	ServiceName        = "swiftast.v1.ParseService"
	ParseProcedure     = "/" + ServiceName + "/Parse"
	CheckProcedure     = "/" + ServiceName + "/Check"
	maxDumpBytes       = 64 << 20
	defaultCacheTTL    = 30 * time.Minute
	defaultSweepPeriod = 5 * time.Minute
)

var log = commonlog.GetLogger("swiftast.server")

// Server serves the parse service. It serves both gRPC (binary protobuf)
// and Connect (HTTP/JSON) on the same port.
type Server struct {
	cfg    serverConfig
	cache  *ResultCache
	policy *PolicyWorker
	mux    *http.ServeMux

	mu   sync.Mutex
	http *http.Server

	stopSweeper func()
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	parseOpts []dump.Option
	policy    *policy.Policy
	cacheTTL  time.Duration
}

// WithParseOptions sets options applied to every parse, before the
// per-request strict flag.
func WithParseOptions(opts ...dump.Option) ServerOption {
	return func(c *serverConfig) { c.parseOpts = append(c.parseOpts, opts...) }
}

// WithPolicy enables the Check procedure.
func WithPolicy(p *policy.Policy) ServerOption {
	return func(c *serverConfig) { c.policy = p }
}

// WithCacheTTL sets how long unused parse results are kept. Zero disables
// the cache.
func WithCacheTTL(ttl time.Duration) ServerOption {
	return func(c *serverConfig) { c.cacheTTL = ttl }
}

// New creates a Server.
func New(opts ...ServerOption) *Server {
	cfg := serverConfig{cacheTTL: defaultCacheTTL}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
	}
	if cfg.cacheTTL > 0 {
		s.cache = NewResultCache()
		s.stopSweeper = s.cache.StartSweeper(min(defaultSweepPeriod, cfg.cacheTTL), cfg.cacheTTL)
	}
	if cfg.policy != nil {
		s.policy = NewPolicyWorker(cfg.policy)
	}

	readLimit := connect.WithReadMaxBytes(maxDumpBytes)
	s.mux.Handle(ParseProcedure, connect.NewUnaryHandler(ParseProcedure, s.parse, readLimit))
	s.mux.Handle(CheckProcedure, connect.NewUnaryHandler(CheckProcedure, s.check, readLimit))
	return s
}

// Handler returns the HTTP handler serving all procedures.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop is called. HTTP/2 is
// accepted without TLS so plain gRPC clients can connect.
func (s *Server) Serve(ln net.Listener) error {
	var protocols http.Protocols
	protocols.SetHTTP1(true)
	protocols.SetUnencryptedHTTP2(true)
	srv := &http.Server{
		Handler:           s.mux,
		Protocols:         &protocols,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	addr := ln.Addr().String()
	log.Infof("swiftast parse service listening on %s", addr)
	log.Infof("  Connect (HTTP/JSON): http://%s%s", addr, ParseProcedure)
	log.Infof("  gRPC (binary):       grpc://%s", addr)

	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts down the server.
func (s *Server) Stop() {
	if s.stopSweeper != nil {
		s.stopSweeper()
	}
	if s.policy != nil {
		s.policy.Stop()
	}
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warningf("shutdown: %s", err)
		}
	}
}

// parseRequest is the decoded form of a Parse or Check request.
type parseRequest struct {
	dump   string
	path   string
	strict bool
}

func decodeRequest(msg *structpb.Struct) (parseRequest, error) {
	fields := msg.GetFields()
	var req parseRequest
	text, ok := fields["dump"]
	if !ok {
		return req, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("dump is required"))
	}
	if _, isString := text.GetKind().(*structpb.Value_StringValue); !isString {
		return req, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("dump must be a string"))
	}
	req.dump = text.GetStringValue()
	req.path = fields["path"].GetStringValue()
	req.strict = fields["strict"].GetBoolValue()
	return req, nil
}

// run parses a request, serving repeated dumps from the cache.
func (s *Server) run(req parseRequest) (*dump.Result, bool, error) {
	digest := store.Digest(req.dump)
	if s.cache != nil {
		if res, ok := s.cache.Lookup(digest, req.strict); ok {
			return res, true, nil
		}
	}

	opts := append([]dump.Option{}, s.cfg.parseOpts...)
	opts = append(opts, dump.WithStrict(req.strict))
	res, err := dump.Parse(req.dump, opts...)
	if err != nil {
		return nil, false, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if s.cache != nil {
		s.cache.Put(digest, req.strict, res)
	}
	return res, false, nil
}

// withPath copies f with the request path applied, so cached results are
// never mutated.
func withPath(f *ast.File, path string) *ast.File {
	if path == "" || f.Path != "" {
		return f
	}
	out := *f
	out.Path = path
	return &out
}

func diagnosticsValue(diags []error) []any {
	out := make([]any, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Error())
	}
	return out
}

func (s *Server) parse(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	pr, err := decodeRequest(req.Msg)
	if err != nil {
		return nil, err
	}
	res, cached, err := s.run(pr)
	if err != nil {
		return nil, err
	}
	f := withPath(res.File, pr.path)

	out, err := structpb.NewStruct(map[string]any{
		"path":        f.Path,
		"statements":  ast.Values(f.Statements),
		"diagnostics": diagnosticsValue(res.Diagnostics),
		"cached":      cached,
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	log.Debugf("parsed %d statements (cached=%t)", len(f.Statements), cached)
	return connect.NewResponse(out), nil
}

func (s *Server) check(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	if s.policy == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("no policy configured"))
	}
	pr, err := decodeRequest(req.Msg)
	if err != nil {
		return nil, err
	}
	res, _, err := s.run(pr)
	if err != nil {
		return nil, err
	}
	violations, err := s.policy.Check(withPath(res.File, pr.path))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	vs := make([]any, 0, len(violations))
	for _, v := range violations {
		vs = append(vs, map[string]any{
			"path":    v.Path,
			"line":    v.Line,
			"kind":    v.Kind.String(),
			"name":    v.Name,
			"message": v.Message,
		})
	}
	out, err := structpb.NewStruct(map[string]any{
		"violations":  vs,
		"diagnostics": diagnosticsValue(res.Diagnostics),
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}
