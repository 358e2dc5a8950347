package order

import (
	"context"
	"errors"
)

// Event is emitted once per real ledger transition, never for replays.
type Event struct {
	Type  string       `json:"event"` // payment.<status>
	Order PaymentOrder `json:"payment"`
}

func newEvent(o PaymentOrder) Event {
	return Event{Type: "payment." + string(o.Status), Order: o}
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Notifiers fans an event out to every notifier and joins their errors.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
