package tickets

import (
	"context"
	"errors"

	"ms-invites/internal/models"
)

// Publishers sends every event to each publisher in turn. Nil entries are
// skipped and every failure is reported.
type Publishers []EventPublisher

func (p Publishers) PublishTicketIssued(ctx context.Context, event models.TicketIssuedEvent) error {
	var errs []error
	for _, pub := range p {
		if pub == nil {
			continue
		}
		if err := pub.PublishTicketIssued(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p Publishers) PublishTicketsPurged(ctx context.Context, event models.TicketsPurgedEvent) error {
	var errs []error
	for _, pub := range p {
		if pub == nil {
			continue
		}
		if err := pub.PublishTicketsPurged(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
