package notify

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
)

// Notifier receives billing lifecycle signals for user-facing messaging.
// Delivery (email, in-app banner) is a separate concern; implementations
// only need to accept the signal.
type Notifier interface {
	PaymentPastDue(ctx context.Context, orgID uint) error
	SubscriptionCanceled(ctx context.Context, orgID uint) error
}

// LogNotifier writes lifecycle signals to the process log. Used until a
// delivery channel is wired up, and in tests.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) PaymentPastDue(ctx context.Context, orgID uint) error {
	_ = ctx
	log.Infof("notify: org %d payment past due", orgID)
	return nil
}

func (n *LogNotifier) SubscriptionCanceled(ctx context.Context, orgID uint) error {
	_ = ctx
	log.Infof("notify: org %d subscription canceled, downgraded to free", orgID)
	return nil
}
