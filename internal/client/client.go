// Package client implements the synchronous JSON-RPC client side of an
// MCP stdio exchange: one request out, one response line back.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/itz4blitz/mcpcheck/internal/protocol"
	"github.com/itz4blitz/mcpcheck/internal/transport"
)

// ErrNoResponse indicates the server closed its output stream before
// producing a reply. Callers report the request as failed, not crashed.
var ErrNoResponse = errors.New("no response received")

// Transport is the line-oriented exchange the client speaks over.
type Transport interface {
	SendLine(data []byte) error
	ReceiveLine(ctx context.Context) ([]byte, error)
}

// Client issues JSON-RPC requests one at a time. Ids are assigned from a
// monotonic counter and the echoed id is validated against the sent one, so
// an out-of-order or misattributed reply surfaces as a protocol failure
// rather than being silently accepted.
type Client struct {
	tr     Transport
	nextID atomic.Int64
	logger *slog.Logger
}

func New(tr Transport, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{tr: tr, logger: logger}
}

// Call sends one request and reads exactly one reply line. It trusts the
// one-in-one-out ordering of a synchronous stdio server; it does not handle
// asynchronous messages interleaved on the same stream.
func (c *Client) Call(ctx context.Context, method string, params any) (*protocol.Message, error) {
	id := c.nextID.Add(1)

	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	data, err := req.Serialize()
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", method, err)
	}

	c.logger.Debug("rpc send", "method", method, "id", id)

	if err := c.tr.SendLine(data); err != nil {
		if errors.Is(err, transport.ErrClosed) {
			return nil, fmt.Errorf("%s: %w", method, ErrNoResponse)
		}
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	line, err := c.tr.ReceiveLine(ctx)
	if err != nil {
		if errors.Is(err, transport.ErrClosed) {
			return nil, fmt.Errorf("%s: %w", method, ErrNoResponse)
		}
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	resp, err := protocol.ParseMessage(line)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if !resp.ValidResponse() {
		return nil, fmt.Errorf("%s: response must carry exactly one of result/error", method)
	}
	if !resp.IDEquals(id) {
		return nil, fmt.Errorf("%s: response id %s does not match request id %d", method, resp.ID, id)
	}

	c.logger.Debug("rpc recv", "method", method, "id", id, "error", len(resp.Error) > 0)
	return resp, nil
}

// Notify sends a notification. No reply is expected or read.
func (c *Client) Notify(method string, params any) error {
	msg, err := protocol.NewNotification(method, params)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	data, err := msg.Serialize()
	if err != nil {
		return fmt.Errorf("%s: marshal notification: %w", method, err)
	}
	c.logger.Debug("rpc notify", "method", method)
	return c.tr.SendLine(data)
}
