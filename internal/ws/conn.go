// Package ws implements the connection channel over a websocket: a
// non-blocking outbound send and an in-order inbound read loop. Connection
// lifecycle beyond a single dial (reconnects, backoff) is the caller's
// problem.
package ws

import (
	"context"
	"errors"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

var (
	ErrClosed = errors.New("channel closed")
	ErrFull   = errors.New("channel full")
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 3 * time.Second
	outboxSize   = 16
)

type Conn struct {
	conn   *websocket.Conn
	log    *zap.Logger
	outbox chan string
	ctx    context.Context
	cancel context.CancelFunc
}

// Dial connects to the chat server and starts the writer goroutine.
func Dial(parent context.Context, url string, log *zap.Logger) (*Conn, error) {
	dialCtx, cancel := context.WithTimeout(parent, dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, url, nil)
	if err != nil {
		return nil, err
	}

	ctx, connCancel := context.WithCancel(parent)
	c := &Conn{
		conn:   conn,
		log:    log,
		outbox: make(chan string, outboxSize),
		ctx:    ctx,
		cancel: connCancel,
	}
	go c.writeLoop()
	return c, nil
}

// Send queues one frame for delivery. It never blocks: a saturated outbox
// returns ErrFull, a closed connection ErrClosed.
func (c *Conn) Send(text string) error {
	select {
	case <-c.ctx.Done():
		return ErrClosed
	default:
	}
	select {
	case c.outbox <- text:
		return nil
	default:
		return ErrFull
	}
}

func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case frame := <-c.outbox:
			ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, []byte(frame))
			cancel()
			if err != nil {
				c.log.Debug("websocket write failed", zap.Error(err))
				c.cancel()
				return
			}
		}
	}
}

// ReadLoop delivers inbound frames to handler in arrival order until the
// connection or the context ends. It runs on the caller's goroutine.
func (c *Conn) ReadLoop(handler func(text string)) error {
	for {
		_, data, err := c.conn.Read(c.ctx)
		if err != nil {
			c.cancel()
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if c.ctx.Err() != nil {
				return nil
			}
			return err
		}
		handler(string(data))
	}
}

func (c *Conn) Close() {
	c.cancel()
	_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
}
