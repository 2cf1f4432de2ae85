package service

import (
	"context"
	"testing"

	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeOrderInput() PlaceOrderInput {
	distance := 5.2
	return PlaceOrderInput{
		CustomerName:    "Ram Thapa",
		CustomerPhone:   "9811111111",
		CustomerEmail:   "ram@example.com",
		PaymentMethod:   model.PaymentMethodCOD,
		DeliveryMethod:  model.DeliveryMethodHome,
		DeliveryAddress: "Lazimpat, Kathmandu",
		DistanceKm:      &distance,
		Items: []OrderItemInput{
			{ProductID: 1, ProductName: "Basmati Rice 5kg", Quantity: 2, UnitPrice: dec("650")},
			{ProductID: 2, ProductName: "Eggs (30)", Quantity: 1, UnitPrice: dec("480")},
		},
	}
}

func TestCheckout_PlaceOrder_HomeDelivery(t *testing.T) {
	env := setupServiceTest(t)

	order, err := env.checkout.PlaceOrder(context.Background(), placeOrderInput())
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
	assert.Contains(t, order.OrderNumber, "ORD-")
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, model.PaymentStatusPending, order.PaymentStatus)

	// 5.2 km: base 100 + 3 started km beyond 3 km at 20
	assertMoney(t, "1780", order.Subtotal)
	assertMoney(t, "160", order.DeliveryFee)
	assertMoney(t, "1940", order.TotalAmount)

	stored := reloadOrder(t, env, order.ID)
	require.Len(t, stored.Items, 2)
	assertMoney(t, "1300", stored.Items[0].TotalPrice)
	assert.Equal(t, 1, stored.Items[1].Position)

	// placement notifies the customer
	assert.Equal(t, []model.OrderStatus{model.OrderStatusPending}, env.notifier.sentStatuses(order.ID))
}

func TestCheckout_PlaceOrder_PickupHasNoFee(t *testing.T) {
	env := setupServiceTest(t)
	input := placeOrderInput()
	input.DeliveryMethod = model.DeliveryMethodPickup
	input.DeliveryAddress = ""
	input.DistanceKm = nil
	input.PickupLocation = "New Road store"

	order, err := env.checkout.PlaceOrder(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, order.DeliveryFee.IsZero())
	assertMoney(t, "1780", order.TotalAmount)
	assert.Equal(t, "New Road store", order.PickupLocation)
}

func TestCheckout_PlaceOrder_FromCoordinates(t *testing.T) {
	env := setupServiceTest(t)
	input := placeOrderInput()
	input.DistanceKm = nil
	lat, lon := 27.7172, 85.3240
	input.Latitude, input.Longitude = &lat, &lon

	order, err := env.checkout.PlaceOrder(context.Background(), input)
	require.NoError(t, err)
	assertMoney(t, "100", order.DeliveryFee)
	assert.InDelta(t, 0, order.DeliveryDistanceKm, 0.001)
}

func TestCheckout_PlaceOrder_CreditAccount(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	customerID := uint(9)
	require.NoError(t, env.creditRepo.Create(ctx, &model.CreditAccount{
		CustomerID:         customerID,
		BusinessName:       "Thamel Bakery",
		DiscountPercent:    dec("10"),
		CreditLimit:        dec("5000"),
		OutstandingBalance: dec("1000"),
	}))

	input := placeOrderInput()
	input.CustomerID = &customerID
	input.PaymentMethod = model.PaymentMethodCredit

	order, err := env.checkout.PlaceOrder(ctx, input)
	require.NoError(t, err)
	assertMoney(t, "178", order.BusinessDiscount)
	assertMoney(t, "1762", order.TotalAmount)

	account, err := env.creditRepo.FindByCustomerID(ctx, customerID)
	require.NoError(t, err)
	assertMoney(t, "2762", account.OutstandingBalance)

	// the next order would cross the limit
	_, err = env.checkout.PlaceOrder(ctx, input)
	require.NoError(t, err)
	_, err = env.checkout.PlaceOrder(ctx, input)
	assert.ErrorIs(t, err, ErrCreditLimitExceeded)

	account, err = env.creditRepo.FindByCustomerID(ctx, customerID)
	require.NoError(t, err)
	assertMoney(t, "4524", account.OutstandingBalance)
}

func TestCheckout_PlaceOrder_CreditNeedsAccount(t *testing.T) {
	env := setupServiceTest(t)
	input := placeOrderInput()
	input.PaymentMethod = model.PaymentMethodCredit

	_, err := env.checkout.PlaceOrder(context.Background(), input)
	assert.ErrorIs(t, err, ErrCreditAccountRequired)
}

func TestCheckout_PlaceOrder_Validation(t *testing.T) {
	far := 40.0
	tests := []struct {
		name   string
		modify func(in *PlaceOrderInput)
		want   error
	}{
		{name: "no items", modify: func(in *PlaceOrderInput) { in.Items = nil }, want: ErrInvalidOrderItems},
		{name: "zero quantity", modify: func(in *PlaceOrderInput) { in.Items[0].Quantity = 0 }, want: ErrInvalidOrderItems},
		{name: "negative price", modify: func(in *PlaceOrderInput) { in.Items[1].UnitPrice = dec("-1") }, want: ErrInvalidOrderItems},
		{name: "unknown payment method", modify: func(in *PlaceOrderInput) { in.PaymentMethod = "barter" }, want: ErrValidation},
		{name: "missing phone", modify: func(in *PlaceOrderInput) { in.CustomerPhone = "" }, want: ErrValidation},
		{name: "missing address", modify: func(in *PlaceOrderInput) { in.DeliveryAddress = "" }, want: ErrInvalidDelivery},
		{name: "missing distance", modify: func(in *PlaceOrderInput) { in.DistanceKm = nil }, want: ErrInvalidDelivery},
		{name: "outside delivery area", modify: func(in *PlaceOrderInput) { in.DistanceKm = &far }, want: ErrOutOfDeliveryArea},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupServiceTest(t)
			input := placeOrderInput()
			tt.modify(&input)

			_, err := env.checkout.PlaceOrder(context.Background(), input)
			assert.ErrorIs(t, err, tt.want)

			var count int64
			require.NoError(t, env.db.Model(&model.Order{}).Count(&count).Error)
			assert.Zero(t, count)
		})
	}
}

func TestCheckout_QuoteDeliveryFee(t *testing.T) {
	env := setupServiceTest(t)

	fee, err := env.checkout.QuoteDeliveryFee(2, dec("800"))
	require.NoError(t, err)
	assertMoney(t, "100", fee)

	fee, err = env.checkout.QuoteDeliveryFee(10, dec("6000"))
	require.NoError(t, err)
	assert.True(t, fee.IsZero())

	_, err = env.checkout.QuoteDeliveryFee(-1, dec("800"))
	assert.ErrorIs(t, err, ErrInvalidDelivery)
}
