package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// HTTPGateway delivers commands as JSON over HTTP to a configuration
// gateway endpoint.
type HTTPGateway struct {
	name       string
	endpoint   string
	httpClient *http.Client
}

// NewHTTPGateway creates an HTTP-based command gateway.
func NewHTTPGateway(name, endpoint string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		name:     name,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type commandRequest struct {
	NodeID     string            `json:"node_id"`
	NodeName   string            `json:"node_name"`
	CommandID  string            `json:"command_id"`
	Line       string            `json:"line"`
	Parameters map[string]string `json:"parameters,omitempty"`
	Preview    bool              `json:"preview,omitempty"`
	Force      bool              `json:"force,omitempty"`
	DryRun     bool              `json:"dry_run,omitempty"`
}

type commandResponse struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// Name returns the gateway identifier.
func (g *HTTPGateway) Name() string {
	return g.name
}

// Execute posts the command to the gateway and maps the response.
func (g *HTTPGateway) Execute(ctx context.Context, node *domain.Node, cmd *domain.Command) (*domain.CommandResult, error) {
	start := time.Now()

	body, err := json.Marshal(commandRequest{
		NodeID:     node.ID,
		NodeName:   node.Name,
		CommandID:  cmd.ID,
		Line:       cmd.Line,
		Parameters: cmd.Parameters,
		Preview:    cmd.Options.Preview,
		Force:      cmd.Options.Force,
		DryRun:     cmd.Options.DryRun,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("gateway rate limited (429), retry after: %s", resp.Header.Get("Retry-After"))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway http %d: %s", resp.StatusCode, string(respBody))
	}

	var cr commandResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	result := &domain.CommandResult{
		ExitCode: cr.ExitCode,
		Stdout:   cr.Stdout,
		Stderr:   cr.Stderr,
		Duration: time.Since(start),
	}
	if cr.ExitCode != 0 {
		return result, &CommandError{ExitCode: cr.ExitCode, Stderr: cr.Stderr}
	}
	return result, nil
}

// Close cleans up resources.
func (g *HTTPGateway) Close() error {
	g.httpClient.CloseIdleConnections()
	return nil
}
