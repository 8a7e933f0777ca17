package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopstack/inventory-api/internal/dto"
	"github.com/shopstack/inventory-api/internal/model"
	"github.com/shopstack/inventory-api/internal/service"
)

type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

func (h *MessageHandler) Create(c *gin.Context) {
	var req dto.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messageService.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": toMessageResponse(msg)})
}

func (h *MessageHandler) ListAll(c *gin.Context) {
	msgs, err := h.messageService.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	items := make([]dto.MessageResponse, 0, len(msgs))
	for i := range msgs {
		items = append(items, toMessageResponse(&msgs[i]))
	}
	c.JSON(http.StatusOK, items)
}

func toMessageResponse(m *model.Message) dto.MessageResponse {
	return dto.MessageResponse{
		ID:          m.ID,
		Name:        m.Name,
		Email:       m.Email,
		Message:     m.Body,
		OrderID:     m.OrderID,
		ProductName: m.ProductName,
		CreatedAt:   m.CreatedAt,
	}
}
