package signal

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConnection wraps a websocket connection as a push handle. Gorilla
// permits only one concurrent writer, so every send is serialized here;
// coordinators may push from timer goroutines as well as the read loop.
type wsConnection struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
}

func newWSConnection(conn *websocket.Conn, writeTimeout time.Duration) *wsConnection {
	return &wsConnection{
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

func (c *wsConnection) Send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *wsConnection) Close() error {
	return c.conn.Close()
}
