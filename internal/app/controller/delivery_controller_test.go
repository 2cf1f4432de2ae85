package controller

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	apperrors "github.com/ikkim/bazaar-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryController_Quote(t *testing.T) {
	env := setupControllerTest(t)
	router := gin.New()
	router.POST("/delivery-fee/quote", NewDeliveryController(env.checkout).Quote)

	tests := []struct {
		name     string
		body     map[string]interface{}
		wantCode int
		wantFee  string
		wantErr  string
	}{
		{name: "within base distance", body: map[string]interface{}{"distance_km": 2, "order_total": "500"}, wantCode: http.StatusOK, wantFee: "100"},
		{name: "started km beyond base", body: map[string]interface{}{"distance_km": 5.2, "order_total": "500"}, wantCode: http.StatusOK, wantFee: "160"},
		{name: "outside area", body: map[string]interface{}{"distance_km": 30}, wantCode: http.StatusUnprocessableEntity, wantErr: apperrors.OrderOutOfDeliveryArea},
		{name: "missing distance", body: map[string]interface{}{"order_total": "500"}, wantCode: http.StatusBadRequest, wantErr: apperrors.ValidationInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/delivery-fee/quote", tt.body)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, errorCode(t, w))
				return
			}
			assertMoney(t, tt.wantFee, decodeBody(t, w)["delivery_fee"])
		})
	}
}
