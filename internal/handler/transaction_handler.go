package handler

import (
	"cardsystem/internal/service"
	"cardsystem/pkg/response"

	"github.com/gin-gonic/gin"
)

// CreateTransaction
// POST /api/v1/transactions
func (h *Handler) CreateTransaction(c *gin.Context) {
	var req service.CreateTransactionRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.transactionService.CreateTransaction(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, resp)
}

// CancelTransaction
// PUT /api/v1/transactions/cancel
func (h *Handler) CancelTransaction(c *gin.Context) {
	var req service.CancelTransactionRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.transactionService.CancelTransaction(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, resp)
}

// GetTransaction
// GET /api/v1/transactions/:referenceNumber
func (h *Handler) GetTransaction(c *gin.Context) {
	details, err := h.transactionService.GetTransaction(c.Request.Context(), c.Param("referenceNumber"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, details)
}

// ListTransactions
// GET /api/v1/transactions?page=0&size=10&sort_by=created_at&sort_dir=desc
func (h *Handler) ListTransactions(c *gin.Context) {
	req, ok := bindPage(c)
	if !ok {
		return
	}

	page, err := h.transactionService.ListTransactions(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, page)
}
