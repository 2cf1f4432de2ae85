package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ikkim/bazaar-backend/internal/middleware"
	ws "github.com/ikkim/bazaar-backend/internal/websocket"
)

type TrackingController struct {
	orders   OrderReader
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewTrackingController accepts websocket upgrades only from the CORS origins
func NewTrackingController(orders OrderReader, hub *ws.Hub, allowedOrigins []string) *TrackingController {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &TrackingController{
		orders: orders,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// 브라우저가 아닌 클라이언트는 Origin 없음
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// TrackOrder streams status updates of one order
// GET /api/v1/ws/orders/:id
// 쿼리 파라미터로 토큰을 받지만, 로깅하지 않음
func (ctrl *TrackingController) TrackOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	// 미들웨어에서 이미 인증 완료
	if _, ok := authorizeOrder(c, ctrl.orders, id); !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err)
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, userID, middleware.IsStaff(c), id)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("Order tracking connection established", map[string]interface{}{
		"user_id":  userID,
		"order_id": id,
	})
}
