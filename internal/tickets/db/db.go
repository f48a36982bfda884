package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-invites/internal/models"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
)

var (
	// ErrPersistence wraps every connectivity or constraint failure.
	ErrPersistence = errors.New("persistence error")
	// ErrTokenCollision marks an insert rejected by the unique token index.
	ErrTokenCollision = fmt.Errorf("%w: token already issued", ErrPersistence)
)

const tokenIndex = "tickets_token_key"

// DeletedUnknown is returned by DeleteAllTickets when the delete succeeded
// but the driver could not report how many rows it removed.
const DeletedUnknown = -1

// DB is the ticket store. Every call borrows a connection from the bun pool
// for the duration of a single statement.
type DB struct {
	Bun *bun.DB
}

func NewDB(bunDB *bun.DB) *DB {
	return &DB{Bun: bunDB}
}

// InitializeSchema creates the tickets table and its unique token index if
// they are missing. Safe to call on every start.
func (d *DB) InitializeSchema(ctx context.Context) error {
	_, err := d.Bun.NewCreateTable().
		Model((*models.Ticket)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: create tickets table: %v", ErrPersistence, err)
	}

	_, err = d.Bun.NewCreateIndex().
		Model((*models.Ticket)(nil)).
		Index(tokenIndex).
		Unique().
		IfNotExists().
		Column("token").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: create token index: %v", ErrPersistence, err)
	}
	return nil
}

// CreateTicket inserts a new, unredeemed ticket and returns it with its
// assigned id.
func (d *DB) CreateTicket(ctx context.Context, name, token string) (*models.Ticket, error) {
	ticket := &models.Ticket{
		Name:     name,
		Token:    token,
		Redeemed: false,
		IssuedAt: time.Now().UTC(),
	}

	_, err := d.Bun.NewInsert().
		Model(ticket).
		Returning("id").
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %v", ErrTokenCollision, err)
		}
		return nil, fmt.Errorf("%w: insert ticket: %v", ErrPersistence, err)
	}
	return ticket, nil
}

// DeleteAllTickets removes every ticket and reports how many rows went, or
// DeletedUnknown.
func (d *DB) DeleteAllTickets(ctx context.Context) (int, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.Ticket)(nil)).
		Where("1 = 1").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: delete tickets: %v", ErrPersistence, err)
	}
	return rowsDeleted(res), nil
}

func rowsDeleted(res sql.Result) int {
	n, err := res.RowsAffected()
	if err != nil {
		return DeletedUnknown
	}
	return int(n)
}

// GetTotalTicketsCount returns the number of tickets ever issued and not purged.
func (d *DB) GetTotalTicketsCount(ctx context.Context) (int, error) {
	count, err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: count tickets: %v", ErrPersistence, err)
	}
	return count, nil
}

// GetRedeemedTicketsCount returns the number of tickets flagged as redeemed.
func (d *DB) GetRedeemedTicketsCount(ctx context.Context) (int, error) {
	count, err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("redeemed = ?", true).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: count redeemed tickets: %v", ErrPersistence, err)
	}
	return count, nil
}

// GetTicketByToken looks a ticket up by the value encoded in its QR code.
func (d *DB) GetTicketByToken(ctx context.Context, token string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("token = ?", token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get ticket: %v", ErrPersistence, err)
	}
	return &ticket, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	// sqlite drivers only expose the constraint failure through the message
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
