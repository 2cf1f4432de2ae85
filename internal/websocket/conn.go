package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/ikkim/bazaar-backend/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// 구독/해제 메시지만 수신
	maxMessageSize = 4 * 1024
)

// Conn wraps the upgraded connection so tests can hand the hub a real socket
type Conn struct {
	*websocket.Conn
}

func (c *Client) logFields() map[string]interface{} {
	c.mu.RLock()
	orders := make([]uint, 0, len(c.Orders))
	for id := range c.Orders {
		orders = append(orders, id)
	}
	c.mu.RUnlock()
	return map[string]interface{}{
		"user_id":  c.UserID,
		"is_staff": c.IsStaff,
		"orders":   orders,
	}
}

// ReadPump consumes subscribe/unsubscribe frames until the peer goes away.
// It owns unregistration; WritePump exits once the hub closes Send.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Order tracking connection dropped", c.logFields())
			}
			return
		}
		c.Hub.HandleClientMessage(c, message)
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(messageType, data)
}

// WritePump delivers order events and keeps the connection alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if !ok {
				c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.write(websocket.TextMessage, event); err != nil {
				logger.Error("Failed to push order event", err, c.logFields())
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
