package config

import (
	"CollabChatAPI/internal/domain"

	"github.com/go-playground/validator/v10"
)

func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("conversation_type", validateConversationType)
	return v
}

func validateConversationType(fl validator.FieldLevel) bool {
	switch domain.ConversationType(fl.Field().String()) {
	case domain.ConversationDirect, domain.ConversationGroup, domain.ConversationChannel,
		domain.ConversationProject, domain.ConversationSupport:
		return true
	}
	return false
}
