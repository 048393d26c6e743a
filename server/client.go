package server

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls a remote parse service over plain gRPC.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a parse service at addr ("host:port"). The connection
// is established lazily on the first call.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Parse sends a dump and returns the decoded response.
func (c *Client) Parse(ctx context.Context, dumpText, path string, strict bool) (map[string]any, error) {
	return c.invoke(ctx, ParseProcedure, dumpText, path, strict)
}

// Check sends a dump for policy evaluation.
func (c *Client) Check(ctx context.Context, dumpText, path string) (map[string]any, error) {
	return c.invoke(ctx, CheckProcedure, dumpText, path, false)
}

func (c *Client) invoke(ctx context.Context, method, dumpText, path string, strict bool) (map[string]any, error) {
	req, err := structpb.NewStruct(map[string]any{
		"dump":   dumpText,
		"path":   path,
		"strict": strict,
	})
	if err != nil {
		return nil, err
	}
	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, method, req, resp); err != nil {
		return nil, err
	}
	return resp.AsMap(), nil
}
