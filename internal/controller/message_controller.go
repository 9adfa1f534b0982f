package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"CollabChatAPI/internal/config"
	"CollabChatAPI/internal/helper"
	"CollabChatAPI/internal/middleware"
	"CollabChatAPI/internal/model"
	"CollabChatAPI/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type MessageController struct {
	messageService *service.MessageService
	cfg            *config.AppConfig
}

func NewMessageController(messageService *service.MessageService, cfg *config.AppConfig) *MessageController {
	return &MessageController{
		messageService: messageService,
		cfg:            cfg,
	}
}

// GetMessages godoc
// @Summary      Get Messages
// @Description  Fetch a page of messages in chronological order. Pages are addressed newest-first via limit and offset.
// @Tags         chat
// @Produce      json
// @Param        conversationID path string true "Conversation ID"
// @Param        limit query int false "Page size (max 100, default 50)"
// @Param        offset query int false "Messages to skip from the newest"
// @Success      200  {object}  helper.ResponseSuccess{data=[]model.MessageResponse}
// @Failure      400  {object}  helper.ResponseError
// @Failure      401  {object}  helper.ResponseError
// @Failure      403  {object}  helper.ResponseError
// @Failure      404  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/chat/conversations/{conversationID}/messages [get]
func (c *MessageController) GetMessages(w http.ResponseWriter, r *http.Request) {
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

	req := model.GetMessagesRequest{
		ConversationID: conversationID,
		Limit:          parseIntQuery(r, "limit"),
		Offset:         parseIntQuery(r, "offset"),
	}

	resp, err := c.messageService.List(r.Context(), userContext, req)
	if err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, resp)
}

// SendMessage godoc
// @Summary      Send Message
// @Description  Send a text message, optionally replying to an earlier message in the same conversation.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        conversationID path string true "Conversation ID"
// @Param        request body model.SendMessageRequest true "Message"
// @Success      200  {object}  helper.ResponseSuccess{data=model.MessageResponse}
// @Failure      400  {object}  helper.ResponseError
// @Failure      401  {object}  helper.ResponseError
// @Failure      403  {object}  helper.ResponseError
// @Failure      404  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/chat/conversations/{conversationID}/messages [post]
func (c *MessageController) SendMessage(w http.ResponseWriter, r *http.Request) {
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

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helper.WriteError(w, helper.NewBadRequestError(""))
		return
	}

	resp, err := c.messageService.Send(r.Context(), userContext, conversationID, req)
	if err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, resp)
}

// SendFiles godoc
// @Summary      Send Files
// @Description  Send a message with file attachments. Image attachments get a thumbnail generated in the background.
// @Tags         chat
// @Accept       multipart/form-data
// @Produce      json
// @Param        conversationID path string true "Conversation ID"
// @Param        files formData file true "Attachments"
// @Param        content formData string false "Caption"
// @Success      200  {object}  helper.ResponseSuccess{data=model.MessageResponse}
// @Failure      400  {object}  helper.ResponseError
// @Failure      401  {object}  helper.ResponseError
// @Failure      403  {object}  helper.ResponseError
// @Failure      404  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/chat/conversations/{conversationID}/files [post]
func (c *MessageController) SendFiles(w http.ResponseWriter, r *http.Request) {
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

	maxMemory := int64(c.cfg.MaxFileSizeMB) << 20
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		helper.WriteError(w, helper.NewBadRequestError("Failed to parse multipart form."))
		return
	}

	files := r.MultipartForm.File["files"]
	content := r.FormValue("content")

	resp, err := c.messageService.SendFiles(r.Context(), userContext, conversationID, content, files)
	if err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, resp)
}

// ToggleReaction godoc
// @Summary      Toggle Reaction
// @Description  Add an emoji reaction to a message, or remove it when the caller already reacted with the same emoji.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        messageID path string true "Message ID"
// @Param        request body model.ReactionRequest true "Reaction"
// @Success      200  {object}  helper.ResponseSuccess{data=[]model.ReactionDTO}
// @Failure      400  {object}  helper.ResponseError
// @Failure      401  {object}  helper.ResponseError
// @Failure      403  {object}  helper.ResponseError
// @Failure      404  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/chat/messages/{messageID}/reactions [post]
func (c *MessageController) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	userContext, ok := middleware.UserFromContext(r.Context())
	if !ok {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
	if err != nil {
		helper.WriteError(w, helper.NewBadRequestError("Invalid message ID."))
		return
	}

	var req model.ReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helper.WriteError(w, helper.NewBadRequestError(""))
		return
	}

	resp, err := c.messageService.ToggleReaction(r.Context(), userContext, messageID, req)
	if err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, resp)
}

// EditMessage godoc
// @Summary      Edit Message
// @Description  Replace the content of a text message the caller sent. The original content is kept from the first edit.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        messageID path string true "Message ID"
// @Param        request body model.EditMessageRequest true "New content"
// @Success      200  {object}  helper.ResponseSuccess{data=model.MessageResponse}
// @Failure      400  {object}  helper.ResponseError
// @Failure      401  {object}  helper.ResponseError
// @Failure      403  {object}  helper.ResponseError
// @Failure      404  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/chat/messages/{messageID} [put]
func (c *MessageController) EditMessage(w http.ResponseWriter, r *http.Request) {
	userContext, ok := middleware.UserFromContext(r.Context())
	if !ok {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
	if err != nil {
		helper.WriteError(w, helper.NewBadRequestError("Invalid message ID."))
		return
	}

	var req model.EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		helper.WriteError(w, helper.NewBadRequestError(""))
		return
	}

	resp, err := c.messageService.Edit(r.Context(), userContext, messageID, req)
	if err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, resp)
}

// DeleteMessage godoc
// @Summary      Delete Message
// @Description  Delete a message the caller sent, along with its attachments.
// @Tags         chat
// @Produce      json
// @Param        messageID path string true "Message ID"
// @Success      200  {object}  helper.ResponseSuccess
// @Failure      401  {object}  helper.ResponseError
// @Failure      403  {object}  helper.ResponseError
// @Failure      404  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/chat/messages/{messageID} [delete]
func (c *MessageController) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userContext, ok := middleware.UserFromContext(r.Context())
	if !ok {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
	if err != nil {
		helper.WriteError(w, helper.NewBadRequestError("Invalid message ID."))
		return
	}

	if err := c.messageService.Delete(r.Context(), userContext, messageID); err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, map[string]bool{"deleted": true})
}

// SearchMessages godoc
// @Summary      Search Messages
// @Description  Case-insensitive substring search over messages in conversations the caller belongs to.
// @Tags         chat
// @Produce      json
// @Param        q query string true "Search query"
// @Param        conversation_id query string false "Restrict to one conversation"
// @Success      200  {object}  helper.ResponseSuccess{data=[]model.MessageResponse}
// @Failure      400  {object}  helper.ResponseError
// @Failure      401  {object}  helper.ResponseError
// @Failure      403  {object}  helper.ResponseError
// @Failure      500  {object}  helper.ResponseError
// @Security     BearerAuth
// @Router       /api/chat/messages/search [get]
func (c *MessageController) SearchMessages(w http.ResponseWriter, r *http.Request) {
	userContext, ok := middleware.UserFromContext(r.Context())
	if !ok {
		helper.WriteError(w, helper.NewUnauthorizedError(""))
		return
	}

	req := model.SearchMessagesRequest{
		Query: r.URL.Query().Get("q"),
	}

	if raw := r.URL.Query().Get("conversation_id"); raw != "" {
		conversationID, err := uuid.Parse(raw)
		if err != nil {
			helper.WriteError(w, helper.NewBadRequestError("Invalid conversation ID."))
			return
		}
		req.ConversationID = &conversationID
	}

	resp, err := c.messageService.Search(r.Context(), userContext, req)
	if err != nil {
		helper.WriteError(w, err)
		return
	}

	helper.WriteSuccess(w, resp)
}

func parseIntQuery(r *http.Request, key string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || value < 0 {
		return 0
	}
	return value
}
