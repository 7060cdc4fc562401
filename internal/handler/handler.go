package handler

import (
	"errors"
	"net/http"

	"cardsystem/internal/logger"
	"cardsystem/internal/service"
	"cardsystem/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	cardService        *service.CardService
	transactionService *service.TransactionService
}

func NewHandler(cardService *service.CardService, transactionService *service.TransactionService) *Handler {
	return &Handler{
		cardService:        cardService,
		transactionService: transactionService,
	}
}

var errorCodes = []struct {
	target error
	code   int
}{
	{service.ErrCardNotFound, response.CodeCardNotFound},
	{service.ErrTransactionNotFound, response.CodeTransactionNotFound},
	{service.ErrDuplicateCard, response.CodeDuplicateCard},
	{service.ErrDuplicateReference, response.CodeDuplicateReference},
	{service.ErrInvalidCardState, response.CodeInvalidCardState},
	{service.ErrInvalidValidationCode, response.CodeInvalidValidationCode},
	{service.ErrCancellationNotAllowed, response.CodeCancellationNotAllowed},
	{service.ErrInvalidInput, response.CodeParamError},
}

func httpStatus(kind service.Kind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindInvalidState, service.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a service error. Internal failures are logged and
// answered with a generic message.
func writeError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	if kind == service.KindInternal {
		logger.FromContext(c.Request.Context()).Error().Err(err).
			Str("path", c.FullPath()).
			Msg("request failed")
		response.ServerError(c)
		return
	}

	code := response.CodeParamError
	for _, ec := range errorCodes {
		if errors.Is(err, ec.target) {
			code = ec.code
			break
		}
	}
	response.Error(c, httpStatus(kind), code, err.Error())
}

// bindJSON decodes the body into req, answering 400 on malformed input.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.ParamError(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func bindPage(c *gin.Context) (service.PageRequest, bool) {
	var req service.PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ParamError(c, "invalid paging parameters: "+err.Error())
		return req, false
	}
	return req, true
}
