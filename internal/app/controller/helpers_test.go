package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/internal/app/repository"
	"github.com/ikkim/bazaar-backend/internal/app/service"
	"github.com/ikkim/bazaar-backend/internal/db"
	"github.com/ikkim/bazaar-backend/internal/middleware"
	"github.com/ikkim/bazaar-backend/pkg/cache"
	"github.com/ikkim/bazaar-backend/pkg/delivery"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	customerID uint = 10
	otherID    uint = 11
	adminID    uint = 1
)

type nopNotifier struct{}

func (nopNotifier) SendStatusUpdate(context.Context, *model.Order, model.OrderStatus) error {
	return nil
}

func (nopNotifier) SendRefundNotice(context.Context, *model.Order) error {
	return nil
}

type controllerEnv struct {
	db           *gorm.DB
	lifecycle    service.OrderLifecycleService
	checkout     service.CheckoutService
	refunds      service.RefundService
	replacements service.ReplacementService
	lists        service.ShoppingListService
}

func setupControllerTest(t *testing.T) *controllerEnv {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	orderRepo := repository.NewOrderRepository(testDB)
	listRepo := repository.NewShoppingListRepository(testDB)
	creditRepo := repository.NewCreditAccountRepository(testDB)
	outboxRepo := repository.NewOutboxRepository(testDB)

	dispatcher := service.NewOutboxDispatcher(
		outboxRepo,
		orderRepo,
		service.NewShoppingListSync(listRepo),
		nopNotifier{},
		cache.NewMemoryClaimStore(time.Hour, time.Minute),
		service.DispatcherConfig{Timeout: 2 * time.Second},
	)
	fees := delivery.Settings{
		BaseFee:        decimal.NewFromInt(100),
		BaseDistanceKm: 3,
		PerKmFee:       decimal.NewFromInt(20),
		MaxDistanceKm:  25,
	}

	env := &controllerEnv{db: testDB}
	env.lifecycle = service.NewOrderLifecycleService(testDB, orderRepo, creditRepo, outboxRepo, dispatcher)
	env.checkout = service.NewCheckoutService(testDB, orderRepo, creditRepo, outboxRepo, dispatcher,
		fees, service.StoreLocation{Latitude: 27.7172, Longitude: 85.3240})
	env.refunds = service.NewRefundService(testDB, orderRepo, outboxRepo, dispatcher)
	env.replacements = service.NewReplacementService(testDB, orderRepo, outboxRepo, dispatcher)
	env.lists = service.NewShoppingListService(testDB, listRepo, env.checkout, dispatcher)
	return env
}

// asUser stands in for the auth middleware
func asUser(userID uint, role model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.UserRoleKey, role)
		c.Next()
	}
}

func (env *controllerEnv) placeOrder(t *testing.T, owner uint) *model.Order {
	t.Helper()
	distance := 2.0
	order, err := env.checkout.PlaceOrder(context.Background(), service.PlaceOrderInput{
		CustomerID:      &owner,
		CustomerName:    "Sita Sharma",
		CustomerPhone:   "9800000000",
		PaymentMethod:   model.PaymentMethodCOD,
		DeliveryMethod:  model.DeliveryMethodHome,
		DeliveryAddress: "Baluwatar, Kathmandu",
		DistanceKm:      &distance,
		Items: []service.OrderItemInput{
			{ProductID: 1, ProductName: "Milk 1L", Quantity: 2, UnitPrice: decimal.NewFromInt(100)},
			{ProductID: 2, ProductName: "Bread", Quantity: 1, UnitPrice: decimal.NewFromInt(80)},
		},
	})
	require.NoError(t, err)
	return order
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// errorCode returns the "error" field of an error body
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decodeBody(t, w)
	require.Contains(t, resp, "message")
	code, _ := resp["error"].(string)
	return code
}

func orderField(t *testing.T, w *httptest.ResponseRecorder, field string) interface{} {
	t.Helper()
	resp := decodeBody(t, w)
	order, ok := resp["order"].(map[string]interface{})
	require.True(t, ok, "response has an order")
	return order[field]
}

// assertMoney compares a decimal rendered as a JSON string
func assertMoney(t *testing.T, want string, got interface{}) {
	t.Helper()
	s, ok := got.(string)
	require.True(t, ok, "money is a JSON string, got %v", got)
	assert.True(t, decimal.RequireFromString(want).Equal(decimal.RequireFromString(s)), "want %s, got %s", want, s)
}
