package bootstrap

import (
	"net/http"
	"time"

	"CollabChatAPI/internal/config"
	"CollabChatAPI/internal/controller"
	"CollabChatAPI/internal/middleware"

	"github.com/go-chi/chi/v5"
)

type Route struct {
	cfg                    *config.AppConfig
	chi                    *chi.Mux
	authMiddleware         *middleware.AuthMiddleware
	rateLimitMiddleware    *middleware.RateLimitMiddleware
	conversationController *controller.ConversationController
	messageController      *controller.MessageController
	websocketController    *controller.WebSocketController
}

func NewRoute(
	cfg *config.AppConfig,
	chi *chi.Mux,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	conversationController *controller.ConversationController,
	messageController *controller.MessageController,
	websocketController *controller.WebSocketController,
) *Route {
	return &Route{
		cfg:                    cfg,
		chi:                    chi,
		authMiddleware:         authMiddleware,
		rateLimitMiddleware:    rateLimitMiddleware,
		conversationController: conversationController,
		messageController:      messageController,
		websocketController:    websocketController,
	}
}

func (route *Route) Register() {
	route.chi.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Welcome to CollabChatAPI"))
	})

	sendLimit := route.rateLimitMiddleware.Limit(
		"send", route.cfg.MessageRateLimit, time.Duration(route.cfg.MessageRateWindowSecs)*time.Second,
	)

	route.chi.Route("/api/chat", func(r chi.Router) {
		r.Use(route.authMiddleware.VerifyToken)

		r.Get("/conversations", route.conversationController.ListConversations)
		r.Post("/conversations", route.conversationController.CreateConversation)
		r.Get("/conversations/available-channels", route.conversationController.AvailableChannels)

		r.Route("/conversations/{conversationID}", func(r chi.Router) {
			r.Delete("/", route.conversationController.DeleteConversation)
			r.Post("/join", route.conversationController.JoinChannel)
			r.Post("/read", route.conversationController.MarkRead)
			r.Post("/participants", route.conversationController.AddParticipant)
			r.Delete("/participants", route.conversationController.LeaveConversation)
			r.Delete("/participants/{userID}", route.conversationController.RemoveParticipant)

			r.Get("/messages", route.messageController.GetMessages)
			r.With(sendLimit).Post("/messages", route.messageController.SendMessage)
			r.With(sendLimit).Post("/files", route.messageController.SendFiles)
		})

		r.Get("/messages/search", route.messageController.SearchMessages)
		r.Route("/messages/{messageID}", func(r chi.Router) {
			r.Post("/reactions", route.messageController.ToggleReaction)
			r.Put("/", route.messageController.EditMessage)
			r.Delete("/", route.messageController.DeleteMessage)
		})

		r.Get("/users", route.conversationController.AvailableUsers)
	})

	route.chi.With(route.authMiddleware.VerifyWSToken).Get("/ws", route.websocketController.ServeWS)
}
