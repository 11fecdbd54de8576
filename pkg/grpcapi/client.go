package grpcapi

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/therealmichaelberna/nokia.isam/pkg/flatten"
)

// Client calls FlattenService on a remote server.
type Client struct {
	cc   grpc.ClientConnInterface
	conn *grpc.ClientConn
}

// Dial connects to addr without transport security unless opts say
// otherwise.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	return &Client{cc: conn, conn: conn}, nil
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Close closes the connection opened by Dial.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// FlattenLines flattens raw with the line strategy under policy.
func (c *Client) FlattenLines(ctx context.Context, raw string, policy flatten.Policy) ([]string, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, PolicyMetadataKey, policy.String())
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, FlattenService_FlattenLines_FullMethodName, wrapperspb.String(raw), out); err != nil {
		return nil, err
	}
	return listStrings(out), nil
}

// FlattenTree flattens raw with the tree strategy.
func (c *Client) FlattenTree(ctx context.Context, raw string) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, FlattenService_FlattenTree_FullMethodName, wrapperspb.String(raw), out); err != nil {
		return nil, err
	}
	return listStrings(out), nil
}

// GatherFacts returns the gathered resource as generic JSON-like data:
// resource, command, lines, stats and facts.
func (c *Client) GatherFacts(ctx context.Context, resource string) (map[string]any, error) {
	out := new(structpb.Value)
	if err := c.cc.Invoke(ctx, FlattenService_GatherFacts_FullMethodName, wrapperspb.String(resource), out); err != nil {
		return nil, err
	}
	m, ok := out.AsInterface().(map[string]any)
	if !ok {
		return nil, fmt.Errorf("gather %s: unexpected response type %T", resource, out.AsInterface())
	}
	return m, nil
}

// Complete returns shell completion candidates for line.
func (c *Client) Complete(ctx context.Context, line string) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, FlattenService_Complete_FullMethodName, wrapperspb.String(line), out); err != nil {
		return nil, err
	}
	return listStrings(out), nil
}
