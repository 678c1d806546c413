package transport

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// executeMethod is the gateway's fully-qualified command RPC.
const executeMethod = "/dispatcher.Gateway/ExecuteCommand"

// GRPCGateway delivers commands over a gRPC connection to the
// configuration gateway. The gateway speaks JSON-encoded messages, so
// no generated stubs are required.
type GRPCGateway struct {
	name     string
	endpoint string
	conn     *grpc.ClientConn
}

// NewGRPCGateway dials the gateway. TLS is inferred from the endpoint
// scheme or a :443 suffix.
func NewGRPCGateway(ctx context.Context, name, endpoint string) (*GRPCGateway, error) {
	target := endpoint
	var opts []grpc.DialOption

	if strings.HasPrefix(endpoint, "https://") || strings.HasSuffix(endpoint, ":443") {
		creds := credentials.NewTLS(&tls.Config{})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}

	opts = append(opts, grpc.WithBlock()) // Wait for connection

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial grpc gateway %s: %w", target, err)
	}

	return &GRPCGateway{
		name:     name,
		endpoint: endpoint,
		conn:     conn,
	}, nil
}

// Conn returns the underlying gRPC connection for callers that carry
// their own generated clients.
func (g *GRPCGateway) Conn() *grpc.ClientConn {
	return g.conn
}

// Name returns the gateway identifier.
func (g *GRPCGateway) Name() string {
	return g.name
}

// Execute invokes the gateway's command RPC with JSON-encoded messages.
func (g *GRPCGateway) Execute(ctx context.Context, node *domain.Node, cmd *domain.Command) (*domain.CommandResult, error) {
	start := time.Now()

	req := commandRequest{
		NodeID:     node.ID,
		NodeName:   node.Name,
		CommandID:  cmd.ID,
		Line:       cmd.Line,
		Parameters: cmd.Parameters,
		Preview:    cmd.Options.Preview,
		Force:      cmd.Options.Force,
		DryRun:     cmd.Options.DryRun,
	}
	var resp commandResponse

	if err := g.conn.Invoke(ctx, executeMethod, &req, &resp, grpc.ForceCodec(jsonCodec{})); err != nil {
		return nil, fmt.Errorf("gateway rpc: %w", err)
	}

	result := &domain.CommandResult{
		ExitCode: resp.ExitCode,
		Stdout:   resp.Stdout,
		Stderr:   resp.Stderr,
		Duration: time.Since(start),
	}
	if resp.ExitCode != 0 {
		return result, &CommandError{ExitCode: resp.ExitCode, Stderr: resp.Stderr}
	}
	return result, nil
}

// Close cleans up resources.
func (g *GRPCGateway) Close() error {
	return g.conn.Close()
}

// jsonCodec lets Invoke carry plain JSON structs over gRPC.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return "json" }
