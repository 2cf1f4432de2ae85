package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/pkg/logger"
	"github.com/ikkim/bazaar-backend/pkg/notify"
)

// NotificationGateway delivers order notifications to customers
type NotificationGateway interface {
	SendStatusUpdate(ctx context.Context, order *model.Order, status model.OrderStatus) error
	SendRefundNotice(ctx context.Context, order *model.Order) error
}

// ClaimStore hands out short-lived exclusive claims on a key
type ClaimStore interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type EmailSender interface {
	Send(ctx context.Context, email notify.Email) error
}

// EmailNotifier sends order notifications through the email relay
type EmailNotifier struct {
	sender     EmailSender
	adminEmail string
}

func NewEmailNotifier(sender EmailSender, adminEmail string) *EmailNotifier {
	return &EmailNotifier{sender: sender, adminEmail: adminEmail}
}

func (n *EmailNotifier) SendStatusUpdate(ctx context.Context, order *model.Order, status model.OrderStatus) error {
	if order.CustomerEmail == "" {
		logger.Debug("No customer email on order, skipping status email", map[string]interface{}{
			"order_id": order.ID,
			"status":   status,
		})
		return nil
	}

	return n.send(ctx, order, notify.Email{
		To:      order.CustomerEmail,
		Subject: fmt.Sprintf("Order %s: %s", order.OrderNumber, StatusLabel(status)),
		Text: fmt.Sprintf("Hello %s,\n\nYour order %s is now %s.\nOrder total: Rs. %s\n",
			order.CustomerName, order.OrderNumber, strings.ToLower(StatusLabel(status)), order.TotalAmount.StringFixed(2)),
		Tags: map[string]string{"type": "status_update", "status": string(status)},
	})
}

func (n *EmailNotifier) SendRefundNotice(ctx context.Context, order *model.Order) error {
	text := fmt.Sprintf("Hello %s,\n\nA refund of Rs. %s has been processed for order %s.\nReason: %s\n",
		order.CustomerName, order.RefundAmount.StringFixed(2), order.OrderNumber, order.RefundReason)

	var errs []error
	if order.CustomerEmail != "" {
		errs = append(errs, n.send(ctx, order, notify.Email{
			To:      order.CustomerEmail,
			Subject: fmt.Sprintf("Refund processed for order %s", order.OrderNumber),
			Text:    text,
			Tags:    map[string]string{"type": "refund_notice"},
		}))
	}
	if n.adminEmail != "" {
		errs = append(errs, n.send(ctx, order, notify.Email{
			To:      n.adminEmail,
			Subject: fmt.Sprintf("[admin] Refund Rs. %s on %s", order.RefundAmount.StringFixed(2), order.OrderNumber),
			Text:    text,
			Tags:    map[string]string{"type": "refund_notice_admin"},
		}))
	}
	return errors.Join(errs...)
}

// send drops messages the relay refused outright, retrying them cannot help
func (n *EmailNotifier) send(ctx context.Context, order *model.Order, email notify.Email) error {
	err := n.sender.Send(ctx, email)
	if errors.Is(err, notify.ErrRejected) || errors.Is(err, notify.ErrInvalidMessage) {
		logger.Warn("Email relay rejected notification", map[string]interface{}{
			"order_id": order.ID,
			"to":       email.To,
			"error":    err.Error(),
		})
		return nil
	}
	return err
}

// MultiNotifier fans a notification out to every gateway
type MultiNotifier []NotificationGateway

func (m MultiNotifier) SendStatusUpdate(ctx context.Context, order *model.Order, status model.OrderStatus) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.SendStatusUpdate(ctx, order, status))
	}
	return errors.Join(errs...)
}

func (m MultiNotifier) SendRefundNotice(ctx context.Context, order *model.Order) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.SendRefundNotice(ctx, order))
	}
	return errors.Join(errs...)
}

// StatusLabel renders a status for people, e.g. out_for_delivery -> Out for delivery
func StatusLabel(status model.OrderStatus) string {
	s := strings.ReplaceAll(string(status), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
