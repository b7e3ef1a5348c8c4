package control

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
)

// Client dials a running daemon's control socket for a single request.
// It holds no persistent connection: each call opens, sends, reads the
// response, and closes, which is plenty for a CLI subcommand that runs
// once and exits.
type Client struct {
	socketPath string
	dialer     net.Dialer
}

// NewClient constructs a Client bound to the control socket at path.
func NewClient(path string) *Client {
	return &Client{socketPath: path}
}

// TriggerNow asks the daemon to run an out-of-schedule processing cycle.
func (c *Client) TriggerNow(ctx context.Context) error {
	_, err := c.call(ctx, Request{Command: CommandTriggerNow})
	return err
}

// Stop asks the daemon to shut down.
func (c *Client) Stop(ctx context.Context) error {
	_, err := c.call(ctx, Request{Command: CommandStop})
	return err
}

// Status returns the daemon's current run state as reported by
// orchestrator.State.String().
func (c *Client) Status(ctx context.Context) (string, error) {
	resp, err := c.call(ctx, Request{Command: CommandStatus})
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}

func (c *Client) call(ctx context.Context, req Request) (Response, error) {
	conn, err := c.dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return Response{}, fmt.Errorf("dial control socket %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("send control request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read control response: %w", err)
	}
	if !resp.OK {
		return resp, fmt.Errorf("daemon reported error: %s", resp.Error)
	}
	return resp, nil
}
