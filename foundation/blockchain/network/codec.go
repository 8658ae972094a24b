package network

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// MaxMessageSize is the largest payload accepted by Receive.
const MaxMessageSize = 32 << 20

// Set of error variables for the protocol.
var (
	ErrMessage  = errors.New("invalid message")
	ErrTooLarge = errors.New("message too large")
	ErrRemote   = errors.New("remote error")
	ErrData     = signature.ErrData
)

// Encode returns the length prefixed encoding of the message.
func (m Message) Encode() ([]byte, error) {
	payload, err := signature.Encode(m)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", m.Kind, err)
	}

	if len(payload) > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(payload))
	}

	frame := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint64(frame, uint64(len(payload)))
	copy(frame[8:], payload)

	return frame, nil
}

// Send writes the message to the writer.
func Send(w io.Writer, m Message) error {
	frame, err := m.Encode()
	if err != nil {
		return err
	}

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("sending %s: %w", m.Kind, err)
	}

	return nil
}

// Receive reads one message from the reader. A clean end of stream before
// any byte of the message is read is reported as io.EOF.
func Receive(r io.Reader) (Message, error) {
	var prefix [8]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return Message{}, err
	}

	size := binary.BigEndian.Uint64(prefix[:])
	if size > MaxMessageSize {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Message{}, fmt.Errorf("reading payload: %w", err)
	}

	var m Message
	if err := signature.Decode(payload, &m); err != nil {
		return Message{}, err
	}

	if err := m.Validate(); err != nil {
		return Message{}, err
	}

	return m, nil
}

// =============================================================================

// SendContext writes the message to the connection. A cancelled context
// interrupts a blocked write and the context error is returned.
func SendContext(ctx context.Context, conn net.Conn, m Message) error {
	err := withContext(ctx, conn, func() error {
		return Send(conn, m)
	})

	return err
}

// ReceiveContext reads one message from the connection. A cancelled context
// interrupts a blocked read and the context error is returned.
func ReceiveContext(ctx context.Context, conn net.Conn) (Message, error) {
	var m Message
	err := withContext(ctx, conn, func() error {
		var err error
		m, err = Receive(conn)
		return err
	})

	return m, err
}

// withContext runs the blocking operation on the connection. When the
// context is done the connection deadline is moved into the past so the
// operation returns. The deadline is restored afterwards.
func withContext(ctx context.Context, conn net.Conn, op func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
		defer conn.SetDeadline(time.Time{})
	}

	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})

	err := op()

	if !stop() {
		conn.SetDeadline(time.Time{})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}

	return err
}
