package websocket

import (
	"context"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/pkg/logger"
)

const (
	// Rate limiting: 최대 메시지 수 (1초당)
	maxMessagesPerSecond = 10

	EventStatusUpdate   = "status_update"
	EventRefundNotice   = "refund_processed"
	ClientSubscribe     = "subscribe"
	ClientUnsubscribe   = "unsubscribe"
	defaultSendCapacity = 256
)

// ClientMessage 클라이언트로부터 받은 메시지
type ClientMessage struct {
	Type    string `json:"type"` // subscribe, unsubscribe
	OrderID uint   `json:"order_id"`
}

// OrderEvent is pushed to every client tracking the order
type OrderEvent struct {
	Type         string            `json:"type"`
	OrderID      uint              `json:"order_id"`
	OrderNumber  string            `json:"order_number"`
	Status       model.OrderStatus `json:"status"`
	TotalAmount  string            `json:"total_amount"`
	RefundAmount string            `json:"refund_amount,omitempty"`
	At           time.Time         `json:"at"`
}

// Client WebSocket 클라이언트
type Client struct {
	Hub           *Hub
	Conn          *Conn
	UserID        uint
	IsStaff       bool // 관리자는 모든 주문 구독 가능
	Send          chan []byte
	Orders        map[uint]bool // 현재 추적 중인 주문 IDs
	mu            sync.RWMutex
	MessageCount  int       // 최근 1초간 받은 메시지 수
	LastResetTime time.Time // 마지막 카운터 리셋 시간
	RateMu        sync.Mutex
}

// NewClient creates a client already tracking the given orders
func NewClient(hub *Hub, conn *Conn, userID uint, isStaff bool, orderIDs ...uint) *Client {
	orders := make(map[uint]bool, len(orderIDs))
	for _, id := range orderIDs {
		orders[id] = true
	}
	return &Client{
		Hub:           hub,
		Conn:          conn,
		UserID:        userID,
		IsStaff:       isStaff,
		Send:          make(chan []byte, defaultSendCapacity),
		Orders:        orders,
		LastResetTime: time.Now(),
	}
}

// Hub WebSocket 연결 관리자
type Hub struct {
	// 등록된 클라이언트들 (UserID -> []*Client - 멀티 디바이스 지원)
	clients map[uint][]*Client

	// 주문별 구독자 (OrderID -> map[UserID]bool)
	rooms map[uint]map[uint]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	mu sync.RWMutex
}

// BroadcastMessage 브로드캐스트 메시지
type BroadcastMessage struct {
	OrderID uint
	Message []byte
}

// NewHub Hub 생성
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint][]*Client),
		rooms:      make(map[uint]map[uint]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *BroadcastMessage, 1024),
	}
}

// Run Hub 실행. ctx가 취소되면 종료
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			// 멀티 디바이스 지원: 클라이언트 리스트에 추가
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			client.mu.RLock()
			for orderID := range client.Orders {
				h.joinLocked(client.UserID, orderID)
			}
			client.mu.RUnlock()
			sessions := len(h.clients[client.UserID])
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"user_id":        client.UserID,
				"total_sessions": sessions,
			})

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			for userID := range h.rooms[message.OrderID] {
				// 멀티 디바이스: 모든 세션에 전송
				for _, client := range h.clients[userID] {
					select {
					case client.Send <- message.Message:
					default:
						// Send 채널이 막혀있음 - 비동기로 정리
						go h.Unregister(client)
						logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
							"user_id": userID,
						})
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clientList, ok := h.clients[client.UserID]
	if !ok {
		return
	}

	newList := make([]*Client, 0, len(clientList))
	found := false
	for _, c := range clientList {
		if c == client {
			found = true
			continue
		}
		newList = append(newList, c)
	}
	if !found {
		return
	}

	if len(newList) == 0 {
		// 마지막 세션이면 이전 세션이 구독한 주문까지 모두 해제
		delete(h.clients, client.UserID)
		for orderID := range h.rooms {
			h.leaveLocked(client.UserID, orderID)
		}
	} else {
		h.clients[client.UserID] = newList
	}
	close(client.Send)

	logger.Info("WebSocket client unregistered", map[string]interface{}{
		"user_id":            client.UserID,
		"remaining_sessions": len(newList),
	})
}

func (h *Hub) joinLocked(userID, orderID uint) {
	if _, ok := h.rooms[orderID]; !ok {
		h.rooms[orderID] = make(map[uint]bool)
	}
	h.rooms[orderID][userID] = true
}

func (h *Hub) leaveLocked(userID, orderID uint) {
	if users, ok := h.rooms[orderID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(h.rooms, orderID)
		}
	}
}

// Track 주문 구독
func (h *Hub) Track(userID, orderID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clientList, ok := h.clients[userID]
	if !ok {
		return
	}
	for _, client := range clientList {
		client.mu.Lock()
		client.Orders[orderID] = true
		client.mu.Unlock()
	}
	h.joinLocked(userID, orderID)

	logger.Debug("User tracking order", map[string]interface{}{
		"user_id":  userID,
		"order_id": orderID,
	})
}

// Untrack 주문 구독 해제
func (h *Hub) Untrack(userID, orderID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients[userID] {
		client.mu.Lock()
		delete(client.Orders, orderID)
		client.mu.Unlock()
	}
	h.leaveLocked(userID, orderID)
}

// SendToOrder pushes a message to everyone tracking the order. Messages are
// dropped when the hub is saturated; clients re-read the order on reconnect.
func (h *Hub) SendToOrder(orderID uint, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Error("Failed to marshal message", err, nil)
		return err
	}

	select {
	case h.broadcast <- &BroadcastMessage{OrderID: orderID, Message: data}:
	default:
		logger.Warn("Broadcast channel full, message dropped", map[string]interface{}{
			"order_id": orderID,
		})
	}
	return nil
}

// SendStatusUpdate implements the notification gateway for live trackers
func (h *Hub) SendStatusUpdate(_ context.Context, order *model.Order, status model.OrderStatus) error {
	return h.SendToOrder(order.ID, OrderEvent{
		Type:        EventStatusUpdate,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      status,
		TotalAmount: order.TotalAmount.StringFixed(2),
		At:          time.Now(),
	})
}

func (h *Hub) SendRefundNotice(_ context.Context, order *model.Order) error {
	return h.SendToOrder(order.ID, OrderEvent{
		Type:         EventRefundNotice,
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		Status:       order.Status,
		TotalAmount:  order.TotalAmount.StringFixed(2),
		RefundAmount: order.RefundAmount.StringFixed(2),
		At:           time.Now(),
	})
}

// Register 클라이언트 등록
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 클라이언트 등록 해제
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// IsTracking reports whether any session of the user follows the order
func (h *Hub) IsTracking(userID, orderID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[orderID][userID]
}

// TrackerCount 주문을 구독 중인 사용자 수
func (h *Hub) TrackerCount(orderID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[orderID])
}

// HandleClientMessage 클라이언트 메시지 처리
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	// Rate limiting 체크
	client.RateMu.Lock()
	now := time.Now()
	if now.Sub(client.LastResetTime) >= time.Second {
		client.MessageCount = 0
		client.LastResetTime = now
	}
	client.MessageCount++
	count := client.MessageCount
	client.RateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"user_id": client.UserID,
			"count":   count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"user_id": client.UserID,
			"error":   err.Error(),
		})
		return
	}

	switch msg.Type {
	case ClientSubscribe:
		// 고객은 연결 시 허가된 주문만 추적
		if !client.IsStaff {
			logger.Warn("Subscribe rejected for non-staff client", map[string]interface{}{
				"user_id":  client.UserID,
				"order_id": msg.OrderID,
			})
			return
		}
		h.Track(client.UserID, msg.OrderID)
	case ClientUnsubscribe:
		h.Untrack(client.UserID, msg.OrderID)
	}
}
