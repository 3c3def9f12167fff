package websocket

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is a registered client connection. Implemented by Connection for real
// sockets; tests substitute their own.
type Conn interface {
	Send(message interface{}) error
	Close() error
	UserID() string
	AuctionID() string
}

// Connection wraps a gorilla websocket connection for one user watching one
// auction. Writes are serialized; gorilla allows only one concurrent writer.
type Connection struct {
	conn      *websocket.Conn
	userID    string
	auctionID string
	writeMu   sync.Mutex
}

func NewConnection(conn *websocket.Conn, userID, auctionID string) *Connection {
	return &Connection{
		conn:      conn,
		userID:    userID,
		auctionID: auctionID,
	}
}

func (c *Connection) Send(message interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(message)
}

func (c *Connection) Close() error {
	return c.conn.Close()
}

func (c *Connection) UserID() string {
	return c.userID
}

func (c *Connection) AuctionID() string {
	return c.auctionID
}
