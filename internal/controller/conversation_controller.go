package controller

import (
	"encoding/json"
	"net/http"

	"CollabChatAPI/internal/helper"
	"CollabChatAPI/internal/middleware"
	"CollabChatAPI/internal/model"
	"CollabChatAPI/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ConversationController struct {
	conversationService *service.ConversationService
	messageService      *service.MessageService
}

func NewConversationController(conversationService *service.ConversationService, messageService *service.MessageService) *ConversationController {
	return &ConversationController{
		conversationService: conversationService,
		messageService:      messageService,
	}
}

// ListConversations godoc
// @Summary      List Conversations
// @Description  List the caller's conversations, most recently active first, with unread counts.
// @Tags         chat
// @Produce      json
// @Success      200  {object}  helper.ResponseSuccess{data=[]model.ConversationResponse}
// @Failure      401  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/chat/conversations [get]
func (c *ConversationController) ListConversations(w http.ResponseWriter, r *http.Request) {
	userContext, ok := middleware.UserFromContext(r.Context())
	if !ok {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	resp, err := c.conversationService.List(r.Context(), userContext)
	if err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, resp)
}

// CreateConversation godoc
// @Summary      Create Conversation
// @Description  Create a direct, group, channel, project, or support conversation. Direct creation is idempotent per pair.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request body model.CreateConversationRequest true "Conversation"
// @Success      200  {object}  helper.ResponseSuccess{data=model.ConversationResponse}
// @Failure      400  {object}  helper.ResponseError
// @Failure      401  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/chat/conversations [post]
func (c *ConversationController) CreateConversation(w http.ResponseWriter, r *http.Request) {
	userContext, ok := middleware.UserFromContext(r.Context())
	if !ok {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	var req model.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helper.WriteError(w, helper.NewBadRequestError(""))
		return
	}

	resp, err := c.conversationService.Create(r.Context(), userContext, req)
	if err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, resp)
}

// AvailableChannels godoc
// @Summary      List Available Channels
// @Description  List the tenant's channels visible to the caller.
// @Tags         chat
// @Produce      json
// @Success      200  {object}  helper.ResponseSuccess{data=[]model.ConversationResponse}
// @Failure      401  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/chat/conversations/available-channels [get]
func (c *ConversationController) AvailableChannels(w http.ResponseWriter, r *http.Request) {
	userContext, ok := middleware.UserFromContext(r.Context())
	if !ok {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	resp, err := c.conversationService.AvailableChannels(r.Context(), userContext)
	if err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, resp)
}

// JoinChannel godoc
// @Summary      Join Channel
// @Description  Join a public channel. Joining a channel the caller already belongs to is a no-op.
// @Tags         chat
// @Produce      json
// @Param        conversationID path string true "Conversation ID"
// @Success      200  {object}  helper.ResponseSuccess{data=model.ConversationResponse}
// @Failure      401  {object}  helper.ResponseError
// @Failure      404  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/chat/conversations/{conversationID}/join [post]
func (c *ConversationController) JoinChannel(w http.ResponseWriter, r *http.Request) {
	userContext, ok := middleware.UserFromContext(r.Context())
	if !ok {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	conversationID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		helper.WriteError(w, helper.NewBadRequestError("Invalid conversation ID."))
		return
	}

	resp, err := c.conversationService.JoinChannel(r.Context(), userContext, conversationID)
	if err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, resp)
}

// MarkRead godoc
// @Summary      Mark Conversation Read
// @Description  Mark every message in the conversation as read by the caller.
// @Tags         chat
// @Produce      json
// @Param        conversationID path string true "Conversation ID"
// @Success      200  {object}  helper.ResponseSuccess
// @Failure      401  {object}  helper.ResponseError
// @Failure      403  {object}  helper.ResponseError
// @Failure      404  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/chat/conversations/{conversationID}/read [post]
func (c *ConversationController) MarkRead(w http.ResponseWriter, r *http.Request) {
	userContext, ok := middleware.UserFromContext(r.Context())
	if !ok {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	conversationID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		helper.WriteError(w, helper.NewBadRequestError("Invalid conversation ID."))
		return
	}

	if err := c.messageService.MarkRead(r.Context(), userContext, conversationID); err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, map[string]bool{"read": true})
}

// AddParticipant godoc
// @Summary      Add Participant
// @Description  Add a tenant user to a group or channel. Admin role required.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        conversationID path string true "Conversation ID"
// @Param        request body model.AddParticipantRequest true "Participant"
// @Success      200  {object}  helper.ResponseSuccess
// @Failure      400  {object}  helper.ResponseError
// @Failure      401  {object}  helper.ResponseError
// @Failure      403  {object}  helper.ResponseError
// @Failure      404  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/chat/conversations/{conversationID}/participants [post]
func (c *ConversationController) AddParticipant(w http.ResponseWriter, r *http.Request) {
	userContext, ok := middleware.UserFromContext(r.Context())
	if !ok {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	conversationID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		helper.WriteError(w, helper.NewBadRequestError("Invalid conversation ID."))
		return
	}

	var req model.AddParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helper.WriteError(w, helper.NewBadRequestError(""))
		return
	}

	if err := c.conversationService.AddParticipant(r.Context(), userContext, conversationID, req); err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, map[string]bool{"added": true})
}

// RemoveParticipant godoc
// @Summary      Remove Participant
// @Description  Remove a participant from a group or channel. Admins can remove anyone; members can only remove themselves.
// @Tags         chat
// @Produce      json
// @Param        conversationID path string true "Conversation ID"
// @Param        userID path string true "User ID"
// @Success      200  {object}  helper.ResponseSuccess
// @Failure      401  {object}  helper.ResponseError
// @Failure      403  {object}  helper.ResponseError
// @Failure      404  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/chat/conversations/{conversationID}/participants/{userID} [delete]
func (c *ConversationController) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	userContext, ok := middleware.UserFromContext(r.Context())
	if !ok {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	conversationID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		helper.WriteError(w, helper.NewBadRequestError("Invalid conversation ID."))
		return
	}

	targetUserID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		helper.WriteError(w, helper.NewBadRequestError("Invalid user ID."))
		return
	}

	if err := c.conversationService.RemoveParticipant(r.Context(), userContext, conversationID, targetUserID); err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, map[string]bool{"removed": true})
}

// LeaveConversation godoc
// @Summary      Leave Conversation
// @Description  Remove the caller from a group or channel.
// @Tags         chat
// @Produce      json
// @Param        conversationID path string true "Conversation ID"
// @Success      200  {object}  helper.ResponseSuccess
// @Failure      401  {object}  helper.ResponseError
// @Failure      404  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/chat/conversations/{conversationID}/participants [delete]
func (c *ConversationController) LeaveConversation(w http.ResponseWriter, r *http.Request) {
	userContext, ok := middleware.UserFromContext(r.Context())
	if !ok {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	conversationID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		helper.WriteError(w, helper.NewBadRequestError("Invalid conversation ID."))
		return
	}

	if err := c.conversationService.RemoveParticipant(r.Context(), userContext, conversationID, userContext.ID); err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, map[string]bool{"left": true})
}

// DeleteConversation godoc
// @Summary      Delete Conversation
// @Description  Soft-delete a group or channel. Admin only; direct conversations cannot be deleted.
// @Tags         chat
// @Produce      json
// @Param        conversationID path string true "Conversation ID"
// @Success      200  {object}  helper.ResponseSuccess
// @Failure      400  {object}  helper.ResponseError
// @Failure      401  {object}  helper.ResponseError
// @Failure      403  {object}  helper.ResponseError
// @Failure      404  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/chat/conversations/{conversationID} [delete]
func (c *ConversationController) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	userContext, ok := middleware.UserFromContext(r.Context())
	if !ok {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	conversationID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		helper.WriteError(w, helper.NewBadRequestError("Invalid conversation ID."))
		return
	}

	if err := c.conversationService.Deactivate(r.Context(), userContext, conversationID); err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, map[string]bool{"deleted": true})
}

// AvailableUsers godoc
// @Summary      List Users
// @Description  List the tenant's active users as direct-conversation candidates.
// @Tags         chat
// @Produce      json
// @Success      200  {object}  helper.ResponseSuccess{data=[]model.UserResponse}
// @Failure      401  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/chat/users [get]
func (c *ConversationController) AvailableUsers(w http.ResponseWriter, r *http.Request) {
	userContext, ok := middleware.UserFromContext(r.Context())
	if !ok {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	resp, err := c.conversationService.AvailableUsers(r.Context(), userContext)
	if err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, resp)
}
