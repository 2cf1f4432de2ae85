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

func replacementRouter(env *controllerEnv, userID uint, role model.UserRole) *gin.Engine {
	ctrl := NewReplacementController(env.replacements, env.lifecycle)
	router := gin.New()
	router.Use(asUser(userID, role))
	router.POST("/orders/:id/replacement-proposals", ctrl.ProposeReplacement)
	router.POST("/orders/:id/replacement-proposals/verify", ctrl.VerifyReplacement)
	router.POST("/orders/:id/replacements/apply", ctrl.ApplyReplacement)
	return router
}

func TestReplacementController_ProposeAndVerify(t *testing.T) {
	env := setupControllerTest(t)
	order := env.placeOrder(t, customerID)
	admin := replacementRouter(env, adminID, model.RoleAdmin)
	customer := replacementRouter(env, customerID, model.RoleCustomer)
	proposePath := fmt.Sprintf("/orders/%d/replacement-proposals", order.ID)
	verifyPath := proposePath + "/verify"

	w := doJSON(admin, http.MethodPost, proposePath, map[string]interface{}{"item_indexes": []int{7}, "suggestion": "Oat milk"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ReplacementInvalidItems, errorCode(t, w))

	w = doJSON(admin, http.MethodPost, proposePath, map[string]interface{}{"item_indexes": []int{0}, "suggestion": "Oat milk", "new_total": "360"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "pending_verification", orderField(t, w, "replacement_status"))

	w = doJSON(admin, http.MethodPost, proposePath, map[string]interface{}{"item_indexes": []int{1}, "suggestion": "Rye bread"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.ReplacementPending, errorCode(t, w))

	w = doJSON(replacementRouter(env, otherID, model.RoleCustomer), http.MethodPost, verifyPath, map[string]interface{}{"accept": true})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(customer, http.MethodPost, verifyPath, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(customer, http.MethodPost, verifyPath, map[string]interface{}{"accept": false, "adjusted_total": "340", "note": "cheaper please"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody(t, w)
	stored := resp["order"].(map[string]interface{})
	assert.Equal(t, "verified", stored["replacement_status"])
	assertMoney(t, "340", stored["replacement_final_total"])

	w = doJSON(customer, http.MethodPost, verifyPath, map[string]interface{}{"accept": true})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.ReplacementNotPending, errorCode(t, w))
}

func TestReplacementController_Apply(t *testing.T) {
	env := setupControllerTest(t)
	order := env.placeOrder(t, customerID)
	require.Len(t, order.Items, 2)
	admin := replacementRouter(env, adminID, model.RoleAdmin)
	path := fmt.Sprintf("/orders/%d/replacements/apply", order.ID)

	body := map[string]interface{}{
		"item_id":                  order.Items[0].ID,
		"replacement_product_id":   9,
		"replacement_product_name": "Oat milk 1L",
		"price_comparison":         map[string]string{"difference": "-20"},
	}

	w := doJSON(admin, http.MethodPost, path, map[string]interface{}{
		"item_id":                9999,
		"replacement_product_id": 9,
		"price_comparison":       map[string]string{"difference": "-20"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.ReplacementInvalidItems, errorCode(t, w))

	w = doJSON(admin, http.MethodPost, path, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody(t, w)
	stored := resp["order"].(map[string]interface{})
	assertMoney(t, "360", stored["total_amount"])
	assertMoney(t, "-20", stored["replacement_adjustment_total"])
	assert.Equal(t, "confirmed", stored["status"])

	w = doJSON(admin, http.MethodPost, path, body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.ReplacementAlreadyApplied, errorCode(t, w))
}
