package services

import (
	"errors"
	"testing"

	"github.com/kendall-kelly/powder-coating-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTemplateFor(t *testing.T) {
	tests := []struct {
		status models.OrderStatus
		want   string
	}{
		{models.StatusCompleted, TemplateOrderCompleted},
		{models.StatusDelayed, TemplateOrderDelayed},
		{models.StatusQueued, TemplateOrderStatusChanged},
		{models.StatusQualityCheck, TemplateOrderStatusChanged},
		{models.StatusPendingQuote, TemplateOrderStatusChanged},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, TemplateFor(tt.status))
		})
	}
}

func TestBuildStatusEmail(t *testing.T) {
	n := StatusNotification{
		OrderID:     7,
		OrderNumber: "PC-20260314-ABC123",
		NewStatus:   models.StatusCuring,
		UserEmail:   "carl@example.com",
		UserName:    "Carl",
		ProjectName: "Wheels",
	}

	msg := BuildStatusEmail(n)
	assert.Equal(t, "carl@example.com", msg.To)
	assert.Equal(t, "Order PC-20260314-ABC123 status changed to curing", msg.Subject)
	assert.Equal(t, TemplateOrderStatusChanged, msg.Template)
	assert.Equal(t, "Wheels", msg.Data["ProjectName"])

	n.NewStatus = models.StatusCompleted
	assert.Equal(t, "Your order PC-20260314-ABC123 is complete!", BuildStatusEmail(n).Subject)
}

func TestEmailTemplatesRender(t *testing.T) {
	data := BuildStatusEmail(StatusNotification{
		OrderNumber: "PC-20260314-ABC123",
		NewStatus:   models.StatusDelayed,
		UserName:    "Carl <script>",
		ProjectName: "Wheels",
	}).Data

	for _, name := range []string{TemplateOrderCompleted, TemplateOrderDelayed, TemplateOrderStatusChanged} {
		t.Run(name, func(t *testing.T) {
			html, err := renderHTML(name, data)
			require.NoError(t, err)
			assert.Contains(t, html, "PC-20260314-ABC123")
			assert.NotContains(t, html, "<script>")

			plain, err := renderPlain(name, data)
			require.NoError(t, err)
			assert.Contains(t, plain, "PC-20260314-ABC123")
		})
	}
}

func TestEmailNotifierBuildMessage(t *testing.T) {
	n := NewEmailNotifier(SMTPConfig{Host: "smtp.test", Port: 465, From: "shop@example.com"})
	assert.True(t, n.dialer.SSL)

	m, err := n.buildMessage(BuildStatusEmail(StatusNotification{
		OrderNumber: "PC-1",
		NewStatus:   models.StatusCompleted,
		UserEmail:   "carl@example.com",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"carl@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Your order PC-1 is complete!"}, m.GetHeader("Subject"))
}

func TestDispatcherLogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	mock := NewMockNotifier()
	mock.FailWith(errors.New("mailbox full"))
	d := NewDispatcher(mock, zap.New(core))

	d.Dispatch(StatusNotification{OrderID: 3, NewStatus: models.StatusCompleted})
	d.Wait()

	entries := logs.FilterMessage("send order notification failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestDispatcherNilSafe(t *testing.T) {
	var d *Dispatcher
	assert.NotPanics(t, func() {
		d.Dispatch(StatusNotification{})
		d.Wait()
	})
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.SendOrderNotification(t.Context(), StatusNotification{
		OrderNumber: "PC-9",
		NewStatus:   models.StatusDelayed,
		UserEmail:   "carl@example.com",
	}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, TemplateOrderDelayed, logs.All()[0].ContextMap()["template"])
}
