package ticket_api

import (
	"net/http"

	"ms-invites/internal/utils"
)

type TicketCountResponse struct {
	TotalCount int `json:"total_count"`
}

type RedeemedCountResponse struct {
	RedeemedCount int `json:"redeemed_count"`
}

// GetTotalTicketsCount handles the request to get the total ticket count
func (h *Handler) GetTotalTicketsCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.TicketService.GetTotalTicketsCount(r.Context())
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("error retrieving ticket count", err))
		return
	}
	utils.WriteJSON(w, http.StatusOK, TicketCountResponse{TotalCount: count})
}

// GetRedeemedTicketsCount handles the request to get how many tickets were used at the door
func (h *Handler) GetRedeemedTicketsCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.TicketService.GetRedeemedTicketsCount(r.Context())
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("error retrieving redeemed count", err))
		return
	}
	utils.WriteJSON(w, http.StatusOK, RedeemedCountResponse{RedeemedCount: count})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.TicketService.GetStats(r.Context())
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("error retrieving ticket stats", err))
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}
