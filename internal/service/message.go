package service

import (
	"context"
	"fmt"

	"github.com/shopstack/inventory-api/internal/dto"
	"github.com/shopstack/inventory-api/internal/model"
	"github.com/shopstack/inventory-api/internal/repository"
)

type MessageService struct {
	messageRepo repository.MessageRepository
}

func NewMessageService(messageRepo repository.MessageRepository) *MessageService {
	return &MessageService{messageRepo: messageRepo}
}

func (s *MessageService) Create(ctx context.Context, req dto.CreateMessageRequest) (*model.Message, error) {
	msg := &model.Message{
		Name:        req.Name,
		Email:       req.Email,
		Body:        req.Message,
		OrderID:     req.OrderID,
		ProductName: req.ProductName,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return msg, nil
}

func (s *MessageService) ListAll(ctx context.Context) ([]model.Message, error) {
	return s.messageRepo.ListAll(ctx)
}
