package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"go-college/payment/order"
)

// Async runs a slow notifier such as SMTP off the request path. Failures are
// logged since nobody is waiting for them.
type Async struct {
	next order.Notifier
	log  *zap.Logger
	wg   sync.WaitGroup
}

func NewAsync(next order.Notifier, log *zap.Logger) *Async {
	return &Async{next: next, log: log}
}

func (a *Async) Notify(ctx context.Context, ev order.Event) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.next.Notify(context.WithoutCancel(ctx), ev); err != nil {
			a.log.Warn("async notification failed",
				zap.String("event", ev.Type),
				zap.String("orderId", ev.Order.OrderID),
				zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until in-flight notifications finish.
func (a *Async) Wait() {
	a.wg.Wait()
}
