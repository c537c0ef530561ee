package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"
)

const (
	dialTimeout = 2 * time.Second
	ioTimeout   = 5 * time.Second
)

// Client talks to a running daemon. Every call opens its own connection.
type Client struct {
	SocketPath string
}

func NewClient(socketPath string) *Client {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	return &Client{SocketPath: socketPath}
}

// Send performs one round trip. A response with Success=false is returned
// as an error carrying the daemon's message.
func (c *Client) Send(ctx context.Context, cmd Command) (Response, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "unix", c.SocketPath)
	if err != nil {
		return Response{}, fmt.Errorf("error connecting to daemon socket (%s): %w", c.SocketPath, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(ioTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	conn.SetDeadline(deadline)

	if err := json.NewEncoder(conn).Encode(cmd); err != nil {
		return Response{}, fmt.Errorf("error sending command: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("error receiving response: %w", err)
	}
	if !resp.Success {
		return resp, errors.New(resp.Message)
	}
	return resp, nil
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Send(ctx, Command{Name: CmdPing})
	return err
}

func (c *Client) Status(ctx context.Context) (StatusData, error) {
	var status StatusData
	resp, err := c.Send(ctx, Command{Name: CmdGetStatus})
	if err != nil {
		return status, err
	}
	err = Decode(resp.Data, &status)
	return status, err
}

// SetMode takes a mode name; the daemon validates it.
func (c *Client) SetMode(ctx context.Context, name string) error {
	_, err := c.Send(ctx, Command{Name: CmdSetMode, Args: SetModeArgs{Mode: name}})
	return err
}

func (c *Client) Stats(ctx context.Context) (StatsData, error) {
	var stats StatsData
	resp, err := c.Send(ctx, Command{Name: CmdGetStats})
	if err != nil {
		return stats, err
	}
	err = Decode(resp.Data, &stats)
	return stats, err
}

func (c *Client) Events(ctx context.Context, since time.Duration) (EventsData, error) {
	var events EventsData
	resp, err := c.Send(ctx, Command{Name: CmdGetEvents, Args: GetEventsArgs{Since: since.String()}})
	if err != nil {
		return events, err
	}
	err = Decode(resp.Data, &events)
	return events, err
}
