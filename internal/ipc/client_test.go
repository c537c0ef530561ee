package ipc

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serve answers every connection with handler(cmd).
func serve(t *testing.T, handler func(Command) Response) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "dk")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "s.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			var cmd Command
			if err := json.NewDecoder(conn).Decode(&cmd); err == nil {
				_ = json.NewEncoder(conn).Encode(handler(cmd))
			}
			conn.Close()
		}
	}()
	return path
}

func TestClientStatus(t *testing.T) {
	temp := 22.5
	path := serve(t, func(cmd Command) Response {
		if cmd.Name != CmdGetStatus {
			return Response{Success: false, Message: "unexpected " + cmd.Name}
		}
		return Response{Success: true, Data: StatusData{
			Mode:            "Study",
			AtDesk:          true,
			Temperature:     &temp,
			AwayAverageMins: map[string]float64{"Study": 5.1},
		}}
	})

	status, err := NewClient(path).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Study", status.Mode)
	assert.True(t, status.AtDesk)
	require.NotNil(t, status.Temperature)
	assert.Equal(t, 22.5, *status.Temperature)
	assert.Nil(t, status.Humidity)
	assert.InDelta(t, 5.1, status.AwayAverageMins["Study"], 0.001)
}

func TestClientSetModeCarriesArgs(t *testing.T) {
	var got SetModeArgs
	path := serve(t, func(cmd Command) Response {
		if err := Decode(cmd.Args, &got); err != nil {
			return Response{Success: false, Message: err.Error()}
		}
		if got.Mode == "Gaming" {
			return Response{Success: false, Message: "unknown mode"}
		}
		return Response{Success: true}
	})

	c := NewClient(path)
	require.NoError(t, c.SetMode(context.Background(), "study"))
	assert.Equal(t, "study", got.Mode)

	err := c.SetMode(context.Background(), "Gaming")
	require.Error(t, err)
	assert.Equal(t, "unknown mode", err.Error())
}

func TestClientNoDaemon(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, c.Ping(ctx))
}

func TestDecodeNil(t *testing.T) {
	var s StatusData
	assert.NoError(t, Decode(nil, &s))
}
