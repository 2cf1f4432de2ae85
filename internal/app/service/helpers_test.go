package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/internal/app/repository"
	"github.com/ikkim/bazaar-backend/internal/db"
	"github.com/ikkim/bazaar-backend/pkg/cache"
	"github.com/ikkim/bazaar-backend/pkg/delivery"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var errRelayDown = errors.New("relay down")

type statusCall struct {
	OrderID uint
	Status  model.OrderStatus
}

type fakeNotifier struct {
	mu       sync.Mutex
	statuses []statusCall
	refunds  []uint
	err      error
}

func (f *fakeNotifier) SendStatusUpdate(_ context.Context, order *model.Order, status model.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.statuses = append(f.statuses, statusCall{OrderID: order.ID, Status: status})
	return nil
}

func (f *fakeNotifier) SendRefundNotice(_ context.Context, order *model.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.refunds = append(f.refunds, order.ID)
	return nil
}

func (f *fakeNotifier) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// sentStatuses returns the statuses notified for one order, in order
func (f *fakeNotifier) sentStatuses(orderID uint) []model.OrderStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.OrderStatus
	for _, c := range f.statuses {
		if c.OrderID == orderID {
			out = append(out, c.Status)
		}
	}
	return out
}

func (f *fakeNotifier) refundCount(orderID uint) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range f.refunds {
		if id == orderID {
			n++
		}
	}
	return n
}

type testEnv struct {
	db         *gorm.DB
	orderRepo  repository.OrderRepository
	listRepo   repository.ShoppingListRepository
	creditRepo repository.CreditAccountRepository
	outboxRepo repository.OutboxRepository
	notifier   *fakeNotifier
	dispatcher *OutboxDispatcher

	lifecycle    OrderLifecycleService
	refunds      RefundService
	replacements ReplacementService
	checkout     CheckoutService
	lists        ShoppingListService
}

var testFees = delivery.Settings{
	BaseFee:               decimal.NewFromInt(100),
	BaseDistanceKm:        3,
	PerKmFee:              decimal.NewFromInt(20),
	FreeDeliveryThreshold: decimal.NewFromInt(5000),
	MaxDistanceKm:         25,
}

func setupServiceTest(t *testing.T) *testEnv {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	env := &testEnv{
		db:         testDB,
		orderRepo:  repository.NewOrderRepository(testDB),
		listRepo:   repository.NewShoppingListRepository(testDB),
		creditRepo: repository.NewCreditAccountRepository(testDB),
		outboxRepo: repository.NewOutboxRepository(testDB),
		notifier:   &fakeNotifier{},
	}

	env.dispatcher = NewOutboxDispatcher(
		env.outboxRepo,
		env.orderRepo,
		NewShoppingListSync(env.listRepo),
		env.notifier,
		cache.NewMemoryClaimStore(time.Hour, time.Minute),
		DispatcherConfig{Timeout: 2 * time.Second, MaxAttempts: 3, BaseBackoff: time.Minute},
	)

	env.lifecycle = NewOrderLifecycleService(testDB, env.orderRepo, env.creditRepo, env.outboxRepo, env.dispatcher)
	env.refunds = NewRefundService(testDB, env.orderRepo, env.outboxRepo, env.dispatcher)
	env.replacements = NewReplacementService(testDB, env.orderRepo, env.outboxRepo, env.dispatcher)
	env.checkout = NewCheckoutService(testDB, env.orderRepo, env.creditRepo, env.outboxRepo, env.dispatcher,
		testFees, StoreLocation{Latitude: 27.7172, Longitude: 85.3240})
	env.lists = NewShoppingListService(testDB, env.listRepo, env.checkout, env.dispatcher)

	return env
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertMoney(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}

// createTestOrder stores a three line order totalling 1500.
// Options adjust the order before it is saved; the total is re-derived afterwards.
func createTestOrder(t *testing.T, env *testEnv, opts ...func(o *model.Order)) *model.Order {
	t.Helper()

	order := &model.Order{
		CustomerName:    "Sita Sharma",
		CustomerPhone:   "9800000001",
		CustomerEmail:   "sita@example.com",
		PaymentMethod:   model.PaymentMethodCOD,
		DeliveryMethod:  model.DeliveryMethodHome,
		DeliveryAddress: "Baneshwor, Kathmandu",
		Subtotal:        dec("1500"),
		Items: []model.OrderItem{
			{Position: 0, ProductID: 1, ProductName: "Basmati Rice 5kg", Quantity: 1, UnitPrice: dec("500"), TotalPrice: dec("500")},
			{Position: 1, ProductID: 2, ProductName: "Mustard Oil 1L", Quantity: 2, UnitPrice: dec("250"), TotalPrice: dec("500")},
			{Position: 2, ProductID: 3, ProductName: "Red Lentils 2kg", Quantity: 1, UnitPrice: dec("500"), TotalPrice: dec("500")},
		},
	}
	for _, opt := range opts {
		opt(order)
	}
	order.RecalculateTotal()

	require.NoError(t, env.orderRepo.Create(context.Background(), order))
	return order
}

func withStatus(status model.OrderStatus) func(o *model.Order) {
	return func(o *model.Order) { o.Status = status }
}

func withPayment(method model.PaymentMethod, status model.PaymentStatus) func(o *model.Order) {
	return func(o *model.Order) {
		o.PaymentMethod = method
		o.PaymentStatus = status
	}
}

func reloadOrder(t *testing.T, env *testEnv, id uint) *model.Order {
	t.Helper()
	order, err := env.orderRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return order
}

func countOutbox(t *testing.T, env *testEnv, orderID uint, kind model.OutboxKind) int64 {
	t.Helper()
	var count int64
	require.NoError(t, env.db.Model(&model.OutboxEvent{}).
		Where("order_id = ? AND kind = ?", orderID, kind).
		Count(&count).Error)
	return count
}
