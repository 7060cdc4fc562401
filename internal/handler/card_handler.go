package handler

import (
	"cardsystem/internal/model"
	"cardsystem/internal/service"
	"cardsystem/pkg/response"

	"github.com/gin-gonic/gin"
)

// CreateCard
// POST /api/v1/cards
func (h *Handler) CreateCard(c *gin.Context) {
	var req service.CreateCardRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.cardService.CreateCard(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, resp)
}

// EnrollCard activates a card with its validation number.
// PUT /api/v1/cards/enroll
func (h *Handler) EnrollCard(c *gin.Context) {
	var req service.EnrollCardRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.cardService.EnrollCard(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, resp)
}

// GetCard
// GET /api/v1/cards/:identifier
func (h *Handler) GetCard(c *gin.Context) {
	details, err := h.cardService.GetCardDetails(c.Request.Context(), c.Param("identifier"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, details)
}

// DeactivateCard
// DELETE /api/v1/cards/:identifier
func (h *Handler) DeactivateCard(c *gin.Context) {
	identifier := c.Param("identifier")
	if err := h.cardService.DeactivateCard(c.Request.Context(), identifier); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{
		"identifier": identifier,
		"status":     model.CardStatusInactive,
	})
}

// ListCards
// GET /api/v1/cards?page=0&size=10&sort_by=created_at&sort_dir=desc
func (h *Handler) ListCards(c *gin.Context) {
	req, ok := bindPage(c)
	if !ok {
		return
	}

	page, err := h.cardService.ListCards(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, page)
}
