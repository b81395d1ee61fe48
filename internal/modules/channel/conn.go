// README: Websocket connection adapter satisfying registry.Channel.
package channel

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const defaultWriteTimeout = 5 * time.Second

// Conn writes JSON frames to one driver socket. websocket.Conn allows
// concurrent writers, so no extra locking is needed here.
type Conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws, writeTimeout: defaultWriteTimeout}
}

func (c *Conn) Send(ctx context.Context, v any) error {
	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.ws, v)
}
