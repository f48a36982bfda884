package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-invites/internal/logger"
	"ms-invites/internal/models"
	"ms-invites/internal/tickets/db"
)

type TicketDBLayer interface {
	CreateTicket(ctx context.Context, name, token string) (*models.Ticket, error)
	DeleteAllTickets(ctx context.Context) (int, error)
	GetTotalTicketsCount(ctx context.Context) (int, error)
	GetRedeemedTicketsCount(ctx context.Context) (int, error)
	GetTicketByToken(ctx context.Context, token string) (*models.Ticket, error)
}

type TokenGenerator interface {
	Generate() (string, error)
}

type CodeEncoder interface {
	Encode(token string) ([]byte, error)
}

type EventPublisher interface {
	PublishTicketIssued(ctx context.Context, event models.TicketIssuedEvent) error
	PublishTicketsPurged(ctx context.Context, event models.TicketsPurgedEvent) error
}

type TicketService struct {
	DB      TicketDBLayer
	Tokens  TokenGenerator
	Encoder CodeEncoder
	Events  EventPublisher
	Logger  *logger.Logger
}

// NewTicketService wires the issuance pipeline. events may be nil.
func NewTicketService(db TicketDBLayer, tokens TokenGenerator, encoder CodeEncoder, events EventPublisher, log *logger.Logger) *TicketService {
	return &TicketService{
		DB:      db,
		Tokens:  tokens,
		Encoder: encoder,
		Events:  events,
		Logger:  log,
	}
}

// DisplayName labels the seq-th ticket of a batch.
func DisplayName(baseName string, seq int) string {
	return fmt.Sprintf("%s_%d", baseName, seq)
}

// IssueBatch issues quantity tickets for baseName in sequence order. Each
// ticket is persisted on its own; when an item fails the already persisted
// prefix is kept and returned inside *BatchIssuanceFailed.
func (s *TicketService) IssueBatch(ctx context.Context, baseName string, quantity int) ([]models.IssuedTicket, error) {
	baseName = strings.TrimSpace(baseName)
	if baseName == "" {
		return nil, ErrInvalidName
	}
	if quantity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}

	s.Logger.LogIssuance("START", baseName, fmt.Sprintf("issuing %d tickets", quantity))
	issued := make([]models.IssuedTicket, 0, quantity)

	for i := 1; i <= quantity; i++ {
		if err := ctx.Err(); err != nil {
			return nil, s.batchFailed(baseName, quantity, issued, err)
		}

		ticket, err := s.issueOne(ctx, DisplayName(baseName, i))
		if err != nil {
			return nil, s.batchFailed(baseName, quantity, issued, err)
		}
		issued = append(issued, *ticket)
	}

	s.Logger.LogIssuance("DONE", baseName, fmt.Sprintf("%d tickets issued", len(issued)))
	return issued, nil
}

// issueOne runs generate, encode, persist for one ticket. A token collision
// is retried once with a fresh token.
func (s *TicketService) issueOne(ctx context.Context, name string) (*models.IssuedTicket, error) {
	const attempts = 2

	for attempt := 1; ; attempt++ {
		token, err := s.Tokens.Generate()
		if err != nil {
			return nil, err
		}

		image, err := s.Encoder.Encode(token)
		if err != nil {
			return nil, err
		}

		ticket, err := s.DB.CreateTicket(ctx, name, token)
		if err != nil {
			if errors.Is(err, db.ErrTokenCollision) && attempt < attempts {
				s.Logger.Warn("ISSUANCE", fmt.Sprintf("token collision for %s, retrying with a new token", name))
				continue
			}
			return nil, err
		}

		s.publishIssued(ctx, ticket)
		return &models.IssuedTicket{
			TicketID:    ticket.ID,
			DisplayName: ticket.Name,
			Token:       ticket.Token,
			Image:       image,
		}, nil
	}
}

func (s *TicketService) batchFailed(baseName string, requested int, issued []models.IssuedTicket, err error) error {
	s.Logger.Error("ISSUANCE", fmt.Sprintf("batch %s stopped after %d of %d tickets: %v", baseName, len(issued), requested, err))
	return &BatchIssuanceFailed{
		Requested: requested,
		Completed: len(issued),
		Issued:    issued,
		Err:       err,
	}
}

func (s *TicketService) publishIssued(ctx context.Context, ticket *models.Ticket) {
	if s.Events == nil {
		return
	}
	event := models.TicketIssuedEvent{
		TicketID:    ticket.ID,
		DisplayName: ticket.Name,
		Token:       ticket.Token,
		IssuedAt:    ticket.IssuedAt,
	}
	if err := s.Events.PublishTicketIssued(ctx, event); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("failed to publish issued event for ticket %d: %v", ticket.ID, err))
	}
}

// GetTotalTicketsCount returns the number of tickets issued
func (s *TicketService) GetTotalTicketsCount(ctx context.Context) (int, error) {
	return s.DB.GetTotalTicketsCount(ctx)
}

// GetRedeemedTicketsCount returns the number of tickets already used at the door
func (s *TicketService) GetRedeemedTicketsCount(ctx context.Context) (int, error) {
	return s.DB.GetRedeemedTicketsCount(ctx)
}

// GetTicketByToken resolves the value read from a QR code.
func (s *TicketService) GetTicketByToken(ctx context.Context, token string) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicketByToken(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	return ticket, err
}

// GetStats reads both counters. The two reads are independent snapshots.
func (s *TicketService) GetStats(ctx context.Context) (models.TicketStats, error) {
	total, err := s.DB.GetTotalTicketsCount(ctx)
	if err != nil {
		return models.TicketStats{}, err
	}
	redeemed, err := s.DB.GetRedeemedTicketsCount(ctx)
	if err != nil {
		return models.TicketStats{}, err
	}
	return models.TicketStats{TotalIssued: total, TotalRedeemed: redeemed}, nil
}

// DeleteAllTickets purges every ticket. It is not retried on failure.
func (s *TicketService) DeleteAllTickets(ctx context.Context) (int, error) {
	deleted, err := s.DB.DeleteAllTickets(ctx)
	if err != nil {
		s.Logger.Error("ISSUANCE", fmt.Sprintf("delete all tickets failed: %v", err))
		return 0, err
	}
	if deleted == db.DeletedUnknown {
		s.Logger.Warn("DATABASE", "tickets purged but the driver did not report how many")
	} else {
		s.Logger.LogDatabase("DELETE", "tickets", fmt.Sprintf("%d tickets purged", deleted))
	}

	if s.Events != nil {
		event := models.TicketsPurgedEvent{Deleted: deleted, PurgedAt: time.Now().UTC()}
		if err := s.Events.PublishTicketsPurged(ctx, event); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("failed to publish purge event: %v", err))
		}
	}
	return deleted, nil
}
