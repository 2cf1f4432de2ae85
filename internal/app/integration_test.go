package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bazaar-backend/config"
	"github.com/ikkim/bazaar-backend/internal/app/controller"
	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/internal/app/repository"
	"github.com/ikkim/bazaar-backend/internal/app/service"
	"github.com/ikkim/bazaar-backend/internal/db"
	"github.com/ikkim/bazaar-backend/internal/middleware"
	"github.com/ikkim/bazaar-backend/internal/router"
	ws "github.com/ikkim/bazaar-backend/internal/websocket"
	"github.com/ikkim/bazaar-backend/pkg/cache"
	"github.com/ikkim/bazaar-backend/pkg/delivery"
	"github.com/ikkim/bazaar-backend/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type TestServer struct {
	Router *gin.Engine
	DB     *gorm.DB
}

func setupIntegrationTest(t *testing.T) *TestServer {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"*"}},
	}

	// Setup repositories
	orderRepo := repository.NewOrderRepository(testDB)
	listRepo := repository.NewShoppingListRepository(testDB)
	creditRepo := repository.NewCreditAccountRepository(testDB)
	outboxRepo := repository.NewOutboxRepository(testDB)

	// Setup services
	hub := ws.NewHub()
	dispatcher := service.NewOutboxDispatcher(
		outboxRepo,
		orderRepo,
		service.NewShoppingListSync(listRepo),
		hub,
		cache.NewMemoryClaimStore(time.Hour, time.Minute),
		service.DispatcherConfig{Timeout: 2 * time.Second},
	)
	fees := delivery.Settings{
		BaseFee:        decimal.NewFromInt(100),
		BaseDistanceKm: 3,
		PerKmFee:       decimal.NewFromInt(20),
		MaxDistanceKm:  25,
	}
	lifecycle := service.NewOrderLifecycleService(testDB, orderRepo, creditRepo, outboxRepo, dispatcher)
	checkout := service.NewCheckoutService(testDB, orderRepo, creditRepo, outboxRepo, dispatcher, fees, service.StoreLocation{})
	refunds := service.NewRefundService(testDB, orderRepo, outboxRepo, dispatcher)
	replacements := service.NewReplacementService(testDB, orderRepo, outboxRepo, dispatcher)
	lists := service.NewShoppingListService(testDB, listRepo, checkout, dispatcher)
	reports := service.NewReportService(orderRepo, nil, "reports/refunds")

	// Setup router
	r := router.NewRouter(
		controller.NewOrderController(lifecycle, checkout),
		controller.NewRefundController(refunds, lifecycle),
		controller.NewReplacementController(replacements, lifecycle),
		controller.NewShoppingListController(lists, nil),
		controller.NewDeliveryController(checkout),
		controller.NewReportController(reports),
		controller.NewTrackingController(lifecycle, hub, cfg.CORS.AllowedOrigins),
		middleware.NewAuthMiddleware(testSecret),
		nil,
		cfg,
	)

	return &TestServer{
		Router: r.Setup(),
		DB:     testDB,
	}
}

func tokenFor(t *testing.T, userID uint, role model.UserRole) string {
	t.Helper()
	pair, err := util.GenerateTokenPair(userID, fmt.Sprintf("user%d@example.com", userID), string(role), testSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	return pair.AccessToken
}

func (ts *TestServer) call(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)

	var resp map[string]interface{}
	if w.Body.Len() > 0 {
		json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w.Code, resp
}

func field(resp map[string]interface{}, object, name string) interface{} {
	obj, _ := resp[object].(map[string]interface{})
	return obj[name]
}

func TestOrderFulfillmentJourney(t *testing.T) {
	ts := setupIntegrationTest(t)
	customer := tokenFor(t, 10, model.RoleCustomer)
	admin := tokenFor(t, 1, model.RoleAdmin)

	// 1. Customer places a cash on delivery order
	t.Log("Step 1: Place order")
	code, resp := ts.call(t, http.MethodPost, "/api/v1/orders", customer, map[string]interface{}{
		"customer_name":    "Sita Sharma",
		"customer_phone":   "9800000000",
		"payment_method":   "cod",
		"delivery_method":  "home_delivery",
		"delivery_address": "Baluwatar",
		"distance_km":      2,
		"items": []map[string]interface{}{
			{"product_id": 1, "product_name": "Milk 1L", "quantity": 2, "unit_price": "100"},
			{"product_id": 2, "product_name": "Bread", "quantity": 1, "unit_price": "80"},
		},
	})
	require.Equal(t, http.StatusCreated, code, resp)
	orderID := uint(field(resp, "order", "id").(float64))
	orderPath := fmt.Sprintf("/api/v1/orders/%d", orderID)

	// 2. Customers cannot drive the lifecycle
	t.Log("Step 2: Customer cannot set status")
	code, _ = ts.call(t, http.MethodPost, orderPath+"/status", customer, map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, code)

	// 3. Admin walks the order to completion
	t.Log("Step 3: Fulfil order")
	for _, status := range []string{"confirmed", "preparing", "out_for_delivery", "completed"} {
		code, resp = ts.call(t, http.MethodPost, orderPath+"/status", admin, map[string]string{"status": status})
		require.Equal(t, http.StatusOK, code, resp)
		assert.Equal(t, status, field(resp, "order", "status"))
	}

	code, resp = ts.call(t, http.MethodPost, orderPath+"/status", admin, map[string]string{"status": "preparing"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ORDER_INVALID_TRANSITION", resp["error"])

	// 4. Customer asks for a full refund, admin approves
	t.Log("Step 4: Refund")
	code, resp = ts.call(t, http.MethodPost, orderPath+"/refund-requests", customer, map[string]interface{}{"reason": "wrong items delivered"})
	require.Equal(t, http.StatusCreated, code, resp)

	code, resp = ts.call(t, http.MethodPost, orderPath+"/refund-requests", customer, map[string]interface{}{"reason": "again"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "REFUND_ALREADY_REQUESTED", resp["error"])

	code, resp = ts.call(t, http.MethodPost, orderPath+"/refund-requests/resolve", admin, map[string]string{"decision": "approve"})
	require.Equal(t, http.StatusOK, code, resp)
	assert.Equal(t, "processed", field(resp, "order", "refund_status"))
	assert.Equal(t, "refunded", field(resp, "order", "status"))

	code, resp = ts.call(t, http.MethodPost, orderPath+"/refund-requests/resolve", admin, map[string]string{"decision": "approve"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "REFUND_ALREADY_PROCESSED", resp["error"])

	// 5. Order history shows the refunded order
	t.Log("Step 5: Order history")
	code, resp = ts.call(t, http.MethodGet, "/api/v1/orders", customer, nil)
	require.Equal(t, http.StatusOK, code)
	orders := resp["orders"].([]interface{})
	require.Len(t, orders, 1)
	assert.Equal(t, "refunded", orders[0].(map[string]interface{})["status"])
}

func TestShoppingListJourney(t *testing.T) {
	ts := setupIntegrationTest(t)
	customer := tokenFor(t, 20, model.RoleCustomer)
	admin := tokenFor(t, 1, model.RoleAdmin)

	t.Log("Step 1: Submit list")
	code, resp := ts.call(t, http.MethodPost, "/api/v1/shopping-lists", customer, map[string]interface{}{
		"customer_name":  "Gita Rai",
		"customer_phone": "9822222222",
		"list_text":      "2kg onions, paneer 500g",
	})
	require.Equal(t, http.StatusCreated, code, resp)
	listID := uint(field(resp, "shopping_list", "id").(float64))
	listPath := fmt.Sprintf("/api/v1/shopping-lists/%d", listID)

	t.Log("Step 2: Price and convert")
	code, resp = ts.call(t, http.MethodPost, listPath+"/price", admin, map[string]interface{}{"estimated_total": "1200"})
	require.Equal(t, http.StatusOK, code, resp)

	code, resp = ts.call(t, http.MethodPost, listPath+"/convert", admin, map[string]interface{}{
		"delivery_method":  "home_delivery",
		"delivery_address": "Jhamsikhel",
		"distance_km":      2,
	})
	require.Equal(t, http.StatusCreated, code, resp)
	orderPath := fmt.Sprintf("/api/v1/orders/%d", uint(field(resp, "order", "id").(float64)))

	t.Log("Step 3: List follows the order")
	for _, status := range []string{"confirmed", "preparing", "out_for_delivery"} {
		code, resp = ts.call(t, http.MethodPost, orderPath+"/status", admin, map[string]string{"status": status})
		require.Equal(t, http.StatusOK, code, resp)
	}

	code, resp = ts.call(t, http.MethodGet, listPath, customer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "out_for_delivery", field(resp, "shopping_list", "status"))

	code, _ = ts.call(t, http.MethodPost, orderPath+"/status", admin, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, code)

	code, resp = ts.call(t, http.MethodGet, listPath, customer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", field(resp, "shopping_list", "status"))
}

func TestUnauthorizedAccess(t *testing.T) {
	ts := setupIntegrationTest(t)

	protectedRoutes := []string{
		"/api/v1/orders",
		"/api/v1/orders/1",
		"/api/v1/admin/orders",
		"/api/v1/admin/reports/refunds.xlsx",
	}

	for _, route := range protectedRoutes {
		t.Run(route, func(t *testing.T) {
			code, _ := ts.call(t, http.MethodGet, route, "", nil)
			assert.Equal(t, http.StatusUnauthorized, code)
		})
	}

	t.Run("customer on admin route", func(t *testing.T) {
		code, resp := ts.call(t, http.MethodGet, "/api/v1/admin/orders", tokenFor(t, 10, model.RoleCustomer), nil)
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "AUTHZ_FORBIDDEN", resp["error"])
	})
}

func TestPublicEndpoints(t *testing.T) {
	ts := setupIntegrationTest(t)

	code, resp := ts.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp["status"])

	code, resp = ts.call(t, http.MethodPost, "/api/v1/delivery-fee/quote", "", map[string]interface{}{"distance_km": 4.5, "order_total": "300"})
	require.Equal(t, http.StatusOK, code, resp)
	assert.True(t, decimal.RequireFromString(resp["delivery_fee"].(string)).Equal(decimal.NewFromInt(140)))
}
