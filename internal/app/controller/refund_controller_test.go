package controller

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bazaar-backend/internal/app/model"
	apperrors "github.com/ikkim/bazaar-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refundRouter(env *controllerEnv, userID uint, role model.UserRole) *gin.Engine {
	ctrl := NewRefundController(env.refunds, env.lifecycle)
	router := gin.New()
	router.Use(asUser(userID, role))
	router.POST("/orders/:id/refund-requests", ctrl.RequestRefund)
	router.POST("/orders/:id/refund-requests/resolve", ctrl.ResolveRefundRequest)
	router.POST("/orders/:id/refunds", ctrl.DirectRefund)
	return router
}

func TestRefundController_RequestRefund(t *testing.T) {
	env := setupControllerTest(t)
	order := env.placeOrder(t, customerID)
	path := fmt.Sprintf("/orders/%d/refund-requests", order.ID)
	customer := refundRouter(env, customerID, model.RoleCustomer)

	w := doJSON(refundRouter(env, otherID, model.RoleCustomer), http.MethodPost, path, map[string]interface{}{"reason": "not mine"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(customer, http.MethodPost, path, map[string]interface{}{"reason": "spoiled", "item_indexes": []int{5}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.RefundInvalidItems, errorCode(t, w))

	w = doJSON(customer, http.MethodPost, path, map[string]interface{}{"reason": "milk was spoiled", "item_indexes": []int{0}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decodeBody(t, w)
	stored := resp["order"].(map[string]interface{})
	assert.Equal(t, "pending", stored["refund_request_status"])
	assertMoney(t, "200", stored["refund_requested_amount"])
	assert.Equal(t, "Milk 1L", stored["refund_requested_items"])

	w = doJSON(customer, http.MethodPost, path, map[string]interface{}{"reason": "again"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.RefundAlreadyRequested, errorCode(t, w))

	w = doJSON(customer, http.MethodPost, path, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ValidationInvalidInput, errorCode(t, w))
}

func TestRefundController_ResolveRefundRequest(t *testing.T) {
	env := setupControllerTest(t)
	order := env.placeOrder(t, customerID)
	customer := refundRouter(env, customerID, model.RoleCustomer)
	admin := refundRouter(env, adminID, model.RoleAdmin)
	resolvePath := fmt.Sprintf("/orders/%d/refund-requests/resolve", order.ID)

	w := doJSON(admin, http.MethodPost, resolvePath, map[string]string{"decision": "approve"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.RefundNoPendingRequest, errorCode(t, w))

	w = doJSON(customer, http.MethodPost, fmt.Sprintf("/orders/%d/refund-requests", order.ID), map[string]interface{}{"reason": "late delivery"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(admin, http.MethodPost, resolvePath, map[string]string{"decision": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(admin, http.MethodPost, resolvePath, map[string]string{"decision": "approve", "note": "sorry"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "processed", orderField(t, w, "refund_status"))

	w = doJSON(admin, http.MethodPost, resolvePath, map[string]string{"decision": "approve"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.RefundAlreadyProcessed, errorCode(t, w))
}

func TestRefundController_DirectRefund(t *testing.T) {
	env := setupControllerTest(t)
	order := env.placeOrder(t, customerID)
	admin := refundRouter(env, adminID, model.RoleAdmin)
	path := fmt.Sprintf("/orders/%d/refunds", order.ID)

	w := doJSON(admin, http.MethodPost, path, map[string]interface{}{"amount": "1000", "reason": "goodwill"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.RefundInvalidAmount, errorCode(t, w))

	w = doJSON(admin, http.MethodPost, path, map[string]interface{}{"amount": "80", "reason": "bread missing"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody(t, w)
	stored := resp["order"].(map[string]interface{})
	assert.Equal(t, "processed", stored["refund_status"])
	assertMoney(t, "80", stored["refund_amount"])

	w = doJSON(admin, http.MethodPost, path, map[string]interface{}{"reason": "twice"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.RefundAlreadyProcessed, errorCode(t, w))
}
