package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/gogpu/flowline"
)

// ErrClosed is returned by a Client whose connection is gone.
var ErrClosed = errors.New("worker: connection closed")

// Client sends requests to a Server.
//
// Each Generate call takes a new version. Starting a newer call makes any
// older call still waiting return flowline.ErrStale, and responses that
// arrive for versions nobody waits on are discarded.
//
// Client is safe for concurrent use.
type Client struct {
	conn *websocket.Conn

	version atomic.Uint64
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[uint64]chan reply
	err     error

	done chan struct{}
}

type reply struct {
	res *flowline.Result
	err error
}

// Dial connects to a Server at url (ws:// or wss://).
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("worker: dial %s: %w", url, err)
	}
	c := &Client{
		conn:    conn,
		pending: make(map[uint64]chan reply),
		done:    make(chan struct{}),
	}
	go c.read()
	return c, nil
}

func (c *Client) read() {
	defer close(c.done)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}
		frame, err := Decode(msg)
		if err != nil {
			flowline.Logger().Warn("worker: bad frame from server", "err", err)
			continue
		}
		res, err := frame.Result()

		c.mu.Lock()
		ch, ok := c.pending[frame.Header.Version]
		delete(c.pending, frame.Header.Version)
		c.mu.Unlock()

		if !ok {
			flowline.Logger().Debug("worker: discarded response", "version", frame.Header.Version)
			continue
		}
		ch <- reply{res: res, err: err}
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = fmt.Errorf("%w: %w", ErrClosed, err)
	}
	for v, ch := range c.pending {
		ch <- reply{err: c.err}
		delete(c.pending, v)
	}
}

// PutField stores f under id on the server so later requests can name it
// by FieldID alone.
func (c *Client) PutField(id string, f *flowline.Field) error {
	if id == "" || f == nil {
		return flowline.ErrNoField
	}
	frame := RequestFrame(KindPut, 0, flowline.Request{FieldID: id, Field: f})
	return c.send(frame)
}

// Generate sends req and waits for its result.
func (c *Client) Generate(ctx context.Context, req flowline.Request) (*flowline.Result, error) {
	version := c.version.Add(1)
	ch := make(chan reply, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	for v, old := range c.pending {
		if v < version {
			old <- reply{err: flowline.ErrStale}
			delete(c.pending, v)
		}
	}
	c.pending[version] = ch
	c.mu.Unlock()

	if err := c.send(RequestFrame(KindGenerate, version, req)); err != nil {
		c.forget(version)
		return nil, err
	}

	select {
	case r := <-ch:
		return r.res, r.err
	case <-ctx.Done():
		c.forget(version)
		return nil, ctx.Err()
	}
}

func (c *Client) forget(version uint64) {
	c.mu.Lock()
	delete(c.pending, version)
	c.mu.Unlock()
}

func (c *Client) send(f Frame) error {
	b, err := Encode(f)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return nil
}

// Close closes the connection and fails pending calls with ErrClosed.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	err := c.conn.Close()
	<-c.done
	return err
}
