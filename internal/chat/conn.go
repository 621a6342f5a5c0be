package chat

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// Conn wraps one live websocket session: the outbound queue plus the
// identity bound at first successful join.
type Conn struct {
	ws  *websocket.Conn
	out chan []byte

	mu       sync.Mutex
	identity *Identity
}

// Accept upgrades HTTP to websocket (origin policy is handled by the CORS layer)
func Accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
}

// NewConn wraps a WS connection with a buffered outbound queue
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws, out: make(chan []byte, 256)}
}

// BindIdentity sets the connection identity exactly once; joins after the
// first keep the originally bound identity. Returns the effective identity.
func (c *Conn) BindIdentity(id Identity) Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil {
		cp := id
		c.identity = &cp
	}
	return *c.identity
}

// Identity returns the bound identity, or a generated placeholder when the
// connection never completed a join.
func (c *Conn) Identity() Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity != nil {
		return *c.identity
	}
	return placeholderIdentity()
}

func placeholderIdentity() Identity {
	return Identity{AUID: "anon-" + uuid.NewString()[:8], Name: "anonymous"}
}

// send queues a frame without blocking; a full buffer drops the frame
func (c *Conn) send(b []byte) {
	select {
	case c.out <- b:
	default:
	}
}

// Read blocks until it receives a text/binary message
// Returns false if connection is closed
func (c *Conn) Read(ctx context.Context) ([]byte, bool) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return nil, false
		}
		if typ == websocket.MessageText || typ == websocket.MessageBinary {
			return data, true
		}
	}
}

// WriteLoop sends outbound frames + periodic pings
// Exits when ctx is cancelled
func (c *Conn) WriteLoop(ctx context.Context) {
	t := time.NewTicker(20 * time.Second)
	defer t.Stop()

	for {
		select {
		case b := <-c.out:
			_ = c.ws.Write(ctx, websocket.MessageText, b)
		case <-t.C:
			_ = c.ws.Ping(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Close closes the WS connection normally
func (c *Conn) Close() error { return c.ws.Close(websocket.StatusNormalClosure, "bye") }
