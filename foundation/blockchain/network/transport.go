package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// EventHandler defines a function that is called when events occur while
// serving connections.
type EventHandler func(v string, args ...any)

// Handler processes a request and returns the reply. A nil reply means the
// message does not need an answer.
type Handler func(ctx context.Context, m Message) (*Message, error)

// Serve accepts connections on the listener until the context is cancelled.
// Each connection can carry any number of requests. Serve waits for the open
// connections to finish before returning.
func Serve(ctx context.Context, ln net.Listener, handler Handler, evHandler EventHandler) error {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accepting: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveConn(ctx, conn, handler, ev)
		}()
	}
}

func serveConn(ctx context.Context, conn net.Conn, handler Handler, ev EventHandler) {
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	ev("network: serveConn: %s: connected", remote)
	defer ev("network: serveConn: %s: disconnected", remote)

	for {
		req, err := ReceiveContext(ctx, conn)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), ctx.Err() != nil:
			default:
				ev("network: serveConn: %s: receive: ERROR: %s", remote, err)
				SendContext(ctx, conn, Error(err))
			}
			return
		}

		ev("network: serveConn: %s: request: %s", remote, req)

		resp, err := handler(ctx, req)
		if err != nil {
			ev("network: serveConn: %s: %s: ERROR: %s", remote, req.Kind, err)
			e := Error(err)
			resp = &e
		}

		if resp == nil {
			continue
		}

		if err := SendContext(ctx, conn, *resp); err != nil {
			ev("network: serveConn: %s: send: ERROR: %s", remote, err)
			return
		}
	}
}

// =============================================================================

// Client sends messages to nodes. A connection is opened per call.
type Client struct {
	timeout time.Duration
	dialer  net.Dialer
}

// NewClient constructs a client where every call is bounded by the timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		timeout: timeout,
	}
}

// Request sends the message to the host and waits for the reply. An error
// reply from the host is returned as ErrRemote.
func (c *Client) Request(ctx context.Context, host string, m Message) (Message, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		return Message{}, fmt.Errorf("dial %s: %w", host, err)
	}
	defer conn.Close()

	if err := SendContext(ctx, conn, m); err != nil {
		return Message{}, err
	}

	resp, err := ReceiveContext(ctx, conn)
	if err != nil {
		return Message{}, fmt.Errorf("%s: %s: %w", host, m.Kind, err)
	}

	if resp.Kind == KindError {
		return Message{}, fmt.Errorf("%w: %s: %s", ErrRemote, host, resp.Error)
	}

	return resp, nil
}

// Notify sends the message to the host without waiting for a reply.
func (c *Client) Notify(ctx context.Context, host string, m Message) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		return fmt.Errorf("dial %s: %w", host, err)
	}
	defer conn.Close()

	return SendContext(ctx, conn, m)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
