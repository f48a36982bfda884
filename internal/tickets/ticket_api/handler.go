package ticket_api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ms-invites/internal/logger"
	"ms-invites/internal/models"
	"ms-invites/internal/sse"
	tickets "ms-invites/internal/tickets/service"
	"ms-invites/internal/utils"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type TicketService interface {
	IssueBatch(ctx context.Context, baseName string, quantity int) ([]models.IssuedTicket, error)
	GetTotalTicketsCount(ctx context.Context) (int, error)
	GetRedeemedTicketsCount(ctx context.Context) (int, error)
	GetStats(ctx context.Context) (models.TicketStats, error)
	GetTicketByToken(ctx context.Context, token string) (*models.Ticket, error)
	DeleteAllTickets(ctx context.Context) (int, error)
}

// Handler serves the admin API over the ticket service.
type Handler struct {
	TicketService TicketService
	MaxQuantity   int
	Health        func(ctx context.Context) error
	// Events is optional; without it the event stream answers 404.
	Events *sse.TicketEventEmitter
	Logger *logger.Logger
}

func NewHandler(svc TicketService, maxQuantity int, health func(ctx context.Context) error, log *logger.Logger) *Handler {
	return &Handler{
		TicketService: svc,
		MaxQuantity:   maxQuantity,
		Health:        health,
		Logger:        log,
	}
}

// RegisterRoutes mounts the ticket routes under /tickets on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tickets", func(r chi.Router) {
		r.Get("/count", h.GetTotalTicketsCount)
		r.Get("/redeemed/count", h.GetRedeemedTicketsCount)
		r.Get("/stats", h.GetStats)
		r.Get("/events", h.StreamEvents)
		r.Get("/token/{token}", h.GetTicketByToken)
		r.Post("/batch", h.IssueBatch)
		r.Delete("/", h.DeleteAllTickets)
	})
}

type IssueBatchRequest struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type IssuedTicketResponse struct {
	TicketID    int64  `json:"ticket_id"`
	DisplayName string `json:"display_name"`
	Token       string `json:"token"`
	PNGBase64   string `json:"png_base64"`
}

// IssueBatch handles POST /api/tickets/batch with {"name": "...", "quantity": N}.
func (h *Handler) IssueBatch(w http.ResponseWriter, r *http.Request) {
	var req IssueBatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("name is required", tickets.ErrInvalidName))
		return
	}
	if req.Quantity < 1 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("quantity must be at least 1", tickets.ErrInvalidQuantity))
		return
	}
	if h.MaxQuantity > 0 && req.Quantity > h.MaxQuantity {
		utils.WriteJSON(w, http.StatusBadRequest,
			utils.ErrorResponse(fmt.Sprintf("quantity must be at most %d", h.MaxQuantity), tickets.ErrInvalidQuantity))
		return
	}

	issued, err := h.TicketService.IssueBatch(r.Context(), req.Name, req.Quantity)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("issue %q x%d failed: %v", req.Name, req.Quantity, err))

		var batchErr *tickets.BatchIssuanceFailed
		switch {
		case errors.Is(err, tickets.ErrInvalidName), errors.Is(err, tickets.ErrInvalidQuantity):
			utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid batch", err))
		case errors.As(err, &batchErr) && batchErr.Completed > 0:
			resp := utils.ErrorResponse(
				fmt.Sprintf("only %d of %d tickets were issued", batchErr.Completed, batchErr.Requested), batchErr.Err)
			resp.Data = toResponse(batchErr.Issued)
			utils.WriteJSON(w, http.StatusInternalServerError, resp)
		default:
			utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("ticket issuance failed", err))
		}
		return
	}

	utils.WriteJSON(w, http.StatusCreated, toResponse(issued))
}

// GetTicketByToken handles GET /api/tickets/token/{token}.
func (h *Handler) GetTicketByToken(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.TicketService.GetTicketByToken(r.Context(), chi.URLParam(r, "token"))
	if errors.Is(err, tickets.ErrTicketNotFound) {
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("ticket not found", err))
		return
	}
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("error retrieving ticket", err))
		return
	}
	utils.WriteJSON(w, http.StatusOK, ticket)
}

func (h *Handler) DeleteAllTickets(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.TicketService.DeleteAllTickets(r.Context())
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to delete tickets", err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("deleted %d tickets", deleted))
	w.WriteHeader(http.StatusNoContent)
}

// Healthz reports whether the store answers.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health(r.Context()); err != nil {
			utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("database unreachable", err))
			return
		}
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toResponse(issued []models.IssuedTicket) []IssuedTicketResponse {
	out := make([]IssuedTicketResponse, 0, len(issued))
	for _, t := range issued {
		out = append(out, IssuedTicketResponse{
			TicketID:    t.TicketID,
			DisplayName: t.DisplayName,
			Token:       t.Token,
			PNGBase64:   base64.StdEncoding.EncodeToString(t.Image),
		})
	}
	return out
}
