package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kendall-kelly/powder-coating-api/models"
	"go.uber.org/zap"
)

// Email templates
const (
	TemplateOrderCompleted     = "order_completed"
	TemplateOrderDelayed       = "order_delayed"
	TemplateOrderStatusChanged = "order_status_changed"
)

// StatusNotification carries what the client needs to hear about a status change
type StatusNotification struct {
	UserID      uint               `json:"user_id"`
	OrderID     uint               `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	NewStatus   models.OrderStatus `json:"new_status"`
	UserEmail   string             `json:"user_email,omitempty"`
	UserName    string             `json:"user_name,omitempty"`
	ProjectName string             `json:"project_name,omitempty"`
}

// EmailMessage is a rendered-on-delivery email request
type EmailMessage struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}

// Notifier delivers status notifications to clients
type Notifier interface {
	SendOrderNotification(ctx context.Context, n StatusNotification) error
}

// TemplateFor picks the email template for a new status
func TemplateFor(status models.OrderStatus) string {
	switch status {
	case models.StatusCompleted:
		return TemplateOrderCompleted
	case models.StatusDelayed:
		return TemplateOrderDelayed
	default:
		return TemplateOrderStatusChanged
	}
}

// BuildStatusEmail turns a notification into the email request sent to the client
func BuildStatusEmail(n StatusNotification) EmailMessage {
	tmpl := TemplateFor(n.NewStatus)

	var subject string
	switch tmpl {
	case TemplateOrderCompleted:
		subject = fmt.Sprintf("Your order %s is complete!", n.OrderNumber)
	case TemplateOrderDelayed:
		subject = fmt.Sprintf("Update on order %s: slight delay", n.OrderNumber)
	default:
		subject = fmt.Sprintf("Order %s status changed to %s", n.OrderNumber, n.NewStatus)
	}

	return EmailMessage{
		To:       n.UserEmail,
		Subject:  subject,
		Template: tmpl,
		Data: map[string]any{
			"OrderID":     n.OrderID,
			"OrderNumber": n.OrderNumber,
			"Status":      string(n.NewStatus),
			"Name":        n.UserName,
			"ProjectName": n.ProjectName,
		},
	}
}

// LogNotifier only logs; used in development and when no delivery is configured
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendOrderNotification(_ context.Context, sn StatusNotification) error {
	msg := BuildStatusEmail(sn)
	n.log.Info("order notification",
		zap.String("to", msg.To),
		zap.String("template", msg.Template),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// Dispatcher sends notifications in the background. Failures are logged and
// never reach the caller.
type Dispatcher struct {
	notifier Notifier
	log      *zap.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(notifier Notifier, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		log:      log,
		timeout:  15 * time.Second,
	}
}

// Dispatch starts delivery and returns immediately.
func (d *Dispatcher) Dispatch(n StatusNotification) {
	if d == nil || d.notifier == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.notifier.SendOrderNotification(ctx, n); err != nil {
			d.log.Error("send order notification failed",
				zap.Uint("order_id", n.OrderID),
				zap.String("status", string(n.NewStatus)),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until all dispatched notifications have finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
