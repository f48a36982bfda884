package models

import "time"

const (
	TopicTicketIssued  = "invites.ticket.issued"
	TopicTicketsPurged = "invites.tickets.purged"
)

// TicketIssuedEvent is published once per persisted ticket.
type TicketIssuedEvent struct {
	TicketID    int64     `json:"ticket_id"`
	DisplayName string    `json:"display_name"`
	Token       string    `json:"token"`
	IssuedAt    time.Time `json:"issued_at"`
}

// TicketsPurgedEvent is published after an administrative delete-all.
type TicketsPurgedEvent struct {
	Deleted  int       `json:"deleted"` // -1 when the store could not count
	PurgedAt time.Time `json:"purged_at"`
}
