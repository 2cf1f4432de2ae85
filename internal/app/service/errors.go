package service

import "errors"

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrInvalidStatus          = errors.New("invalid order status")
	ErrInvalidTransition      = errors.New("order status transition not allowed")
	ErrOrderClosed            = errors.New("order is closed")
	ErrConcurrentModification = errors.New("order was modified by another request")
	ErrValidation             = errors.New("validation failed")

	ErrCustomerCancelNotAllowed = errors.New("the order is already being prepared, please contact the store to cancel")

	ErrRefundAlreadyRequested = errors.New("refund already requested")
	ErrInvalidItemSelection   = errors.New("invalid item selection")
	ErrAlreadyProcessed       = errors.New("refund already processed")
	ErrInvalidRefundAmount    = errors.New("invalid refund amount")
	ErrNoPendingRefundRequest = errors.New("no pending refund request")

	ErrReplacementPending        = errors.New("replacement proposal awaiting customer verification")
	ErrNoPendingReplacement      = errors.New("no replacement proposal awaiting verification")
	ErrReplacementAlreadyApplied = errors.New("replacement already applied")
	ErrInvalidReplacementTotal   = errors.New("invalid replacement total")

	ErrInvalidOrderItems     = errors.New("invalid order items")
	ErrInvalidDelivery       = errors.New("invalid delivery details")
	ErrOutOfDeliveryArea     = errors.New("address is outside the delivery area")
	ErrCreditAccountRequired = errors.New("credit account required")
	ErrCreditLimitExceeded   = errors.New("credit limit exceeded")

	ErrShoppingListNotFound      = errors.New("shopping list not found")
	ErrShoppingListInvalidStatus = errors.New("shopping list status does not allow this action")
	ErrShoppingListEmpty         = errors.New("shopping list has no text or photos")

	// ErrSyncDeferred marks a follow-up that failed after the order commit and
	// was left in the outbox for retry. Never returned to API callers.
	ErrSyncDeferred = errors.New("follow-up deferred for retry")
)
