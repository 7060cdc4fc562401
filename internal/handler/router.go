package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func SetupRouter(h *Handler, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// logger first so recovery sees the request logger
	r.Use(LoggerMiddleware(log))
	r.Use(RecoveryMiddleware())
	r.Use(CORSMiddleware())

	api := r.Group("/api/v1")
	{
		cards := api.Group("/cards")
		{
			cards.POST("", h.CreateCard)
			cards.PUT("/enroll", h.EnrollCard)
			cards.GET("", h.ListCards)
			cards.GET("/:identifier", h.GetCard)
			cards.DELETE("/:identifier", h.DeactivateCard)
		}

		transactions := api.Group("/transactions")
		{
			transactions.POST("", h.CreateTransaction)
			transactions.PUT("/cancel", h.CancelTransaction)
			transactions.GET("", h.ListTransactions)
			transactions.GET("/:referenceNumber", h.GetTransaction)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
