// Package grpcapi implements the gRPC API server for the ISAM flattening
// toolkit.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/therealmichaelberna/nokia.isam/pkg/cmdtree"
	"github.com/therealmichaelberna/nokia.isam/pkg/configstore"
	"github.com/therealmichaelberna/nokia.isam/pkg/facts"
	"github.com/therealmichaelberna/nokia.isam/pkg/flatten"
	"github.com/therealmichaelberna/nokia.isam/pkg/metrics"
)

// Config configures the gRPC server.
type Config struct {
	Store    *configstore.Store
	Gatherer *facts.Gatherer
	Metrics  *metrics.Metrics
}

// Server implements the FlattenService gRPC service.
type Server struct {
	store     *configstore.Store
	gatherer  *facts.Gatherer
	metrics   *metrics.Metrics
	startTime time.Time
	addr      string
}

var _ FlattenServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server.
func NewServer(addr string, cfg Config) *Server {
	s := &Server{
		store:     cfg.Store,
		gatherer:  cfg.Gatherer,
		metrics:   cfg.Metrics,
		startTime: time.Now(),
		addr:      addr,
	}
	if s.gatherer == nil {
		var f facts.Fetcher
		if cfg.Store != nil {
			f = cfg.Store
		}
		s.gatherer = facts.NewGatherer(f, facts.WithMetrics(cfg.Metrics))
	}
	return s
}

// Run starts the gRPC server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("gRPC listen: %w", err)
	}
	return s.Serve(ctx, lis)
}

// Serve serves on lis until ctx is cancelled, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(logUnary))
	RegisterFlattenServiceServer(srv, s)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gRPC server listening", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	srv.GracefulStop()
	return nil
}

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	slog.Debug("gRPC call",
		"method", info.FullMethod,
		"duration", time.Since(start),
		"code", status.Code(err).String())
	return resp, err
}

// --- Flattening RPCs ---

func (s *Server) FlattenLines(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	policy := s.gatherer.Policy()
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(PolicyMetadataKey); len(v) > 0 {
			p, err := flatten.ParsePolicy(v[0])
			if err != nil {
				return nil, status.Errorf(codes.InvalidArgument, "%v", err)
			}
			policy = p
		}
	}
	return s.flatten(flatten.StrategyLine, req.GetValue(), policy)
}

func (s *Server) FlattenTree(_ context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	return s.flatten(flatten.StrategyTree, req.GetValue(), flatten.PolicyReset)
}

func (s *Server) flatten(strategy flatten.Strategy, raw string, policy flatten.Policy) (*structpb.ListValue, error) {
	lines, st := flatten.Flatten(strategy, raw, policy)
	s.metrics.ObserveFlatten(strategy, st)
	return stringList(lines), nil
}

// --- Facts ---

func (s *Server) GatherFacts(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Value, error) {
	res, err := s.gatherer.GatherOne(ctx, req.GetValue())
	if err != nil {
		return nil, status.Errorf(errorCode(err), "%v", err)
	}
	v, err := structpb.NewValue(resultMap(res))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode facts: %v", err)
	}
	return v, nil
}

// resultMap converts a facts result into the generic form accepted by
// structpb.NewValue.
func resultMap(res *facts.Result) map[string]any {
	lines := make([]any, len(res.Lines))
	for i, l := range res.Lines {
		lines[i] = l
	}
	return map[string]any{
		"resource": res.Resource,
		"command":  res.Command,
		"lines":    lines,
		"stats": map[string]any{
			"read":    res.Stats.Read,
			"skipped": res.Stats.Skipped,
			"emitted": res.Stats.Emitted,
			"dropped": res.Stats.Dropped,
		},
		"facts": res.Facts,
	}
}

func errorCode(err error) codes.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, facts.ErrUnknownResource),
		errors.Is(err, facts.ErrNoCapture),
		errors.Is(err, configstore.ErrNoSuchScope):
		return codes.NotFound
	default:
		return codes.Internal
	}
}

// --- Completion ---

// Scopes implements cmdtree.Env.
func (s *Server) Scopes() []string {
	names := facts.Names()
	if s.store != nil {
		names = append(names, s.store.Scopes()...)
	}
	sort.Strings(names)
	out := names[:0]
	for i, n := range names {
		if i == 0 || n != names[i-1] {
			out = append(out, n)
		}
	}
	return out
}

func (s *Server) Complete(_ context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	cands, _ := cmdtree.Complete(cmdtree.ShellTree, req.GetValue(), s)
	names := make([]string, 0, len(cands))
	for _, c := range cands {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return stringList(names), nil
}

func stringList(items []string) *structpb.ListValue {
	lv := &structpb.ListValue{Values: make([]*structpb.Value, len(items))}
	for i, s := range items {
		lv.Values[i] = structpb.NewStringValue(s)
	}
	return lv
}

// listStrings extracts the string elements of lv.
func listStrings(lv *structpb.ListValue) []string {
	out := make([]string, 0, len(lv.GetValues()))
	for _, v := range lv.GetValues() {
		out = append(out, v.GetStringValue())
	}
	return out
}
