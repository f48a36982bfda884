package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Ticket is one issued invite. Token is the only value encoded into the QR
// code and is unique across the table.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID       int64     `bun:"id,pk,autoincrement" json:"id"`
	Name     string    `bun:"name,notnull" json:"name"`
	Token    string    `bun:"token,notnull,unique" json:"token"`
	Redeemed bool      `bun:"redeemed,notnull,default:false" json:"redeemed"`
	IssuedAt time.Time `bun:"issued_at,notnull,default:current_timestamp" json:"issued_at"`
}

// IssuedTicket pairs a display label with the rendered QR image of one ticket.
type IssuedTicket struct {
	TicketID    int64  `json:"ticket_id"`
	DisplayName string `json:"display_name"`
	Token       string `json:"token"`
	Image       []byte `json:"-"`
}

// TicketStats is the aggregate view answered by the count queries.
type TicketStats struct {
	TotalIssued   int `json:"total_issued"`
	TotalRedeemed int `json:"total_redeemed"`
}
