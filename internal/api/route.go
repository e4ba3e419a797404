package api

import (
	"Switchboard/internal/api/middleware"
	"Switchboard/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		inboxGroup := apiGroup.Group("/inbox")
		{
			inboxGroup.GET("/ws", group.WSHandler.Connect)

			inboxGroup.GET("/conversations", group.InboxHandler.GetConversations)
			inboxGroup.PUT("/tab", group.InboxHandler.SetTab)
			inboxGroup.PUT("/filters", group.InboxHandler.SetFilters)
			inboxGroup.POST("/refresh", group.InboxHandler.Refresh)

			inboxGroup.POST("/history/toggle", group.InboxHandler.ToggleHistory)
			inboxGroup.GET("/messages", group.InboxHandler.GetMessages)

			convGroup := inboxGroup.Group("/conversations/:id")
			{
				convGroup.POST("/open", group.InboxHandler.OpenConversation)
				convGroup.GET("/draft", group.InboxHandler.GetDraft)
				convGroup.PUT("/draft", group.InboxHandler.SetDraftText)
				convGroup.POST("/draft/image", group.InboxHandler.AttachImage)
				convGroup.DELETE("/draft/image", group.InboxHandler.RemoveImage)
				convGroup.POST("/send", group.InboxHandler.Send)
			}
		}
	}

	return r
}
