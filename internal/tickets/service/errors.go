package tickets

import (
	"errors"
	"fmt"

	"ms-invites/internal/models"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidName     = errors.New("name must not be empty")
	ErrTicketNotFound  = errors.New("ticket not found")
)

// BatchIssuanceFailed reports a batch that stopped partway. Tickets in
// Issued were persisted before the failure and stay valid.
type BatchIssuanceFailed struct {
	Requested int
	Completed int
	Issued    []models.IssuedTicket
	Err       error
}

func (e *BatchIssuanceFailed) Error() string {
	return fmt.Sprintf("batch issuance failed after %d of %d tickets: %v", e.Completed, e.Requested, e.Err)
}

func (e *BatchIssuanceFailed) Unwrap() error {
	return e.Err
}
