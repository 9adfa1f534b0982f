package bootstrap

import (
	"context"
	"time"

	"CollabChatAPI/internal/adapter"
	"CollabChatAPI/internal/config"
	"CollabChatAPI/internal/controller"
	"CollabChatAPI/internal/middleware"
	"CollabChatAPI/internal/repository"
	"CollabChatAPI/internal/repository/postgres"
	"CollabChatAPI/internal/service"
	"CollabChatAPI/internal/websocket"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
)

func Init(
	appConfig *config.AppConfig,
	pool *pgxpool.Pool,
	validator *validator.Validate,
	s3Client *s3.Client,
	redisAdapter *adapter.RedisAdapter,
) *chi.Mux {
	storageAdapter := adapter.NewStorageAdapter(appConfig, s3Client)

	userRepo := postgres.NewUserRepo(pool)
	conversationRepo := postgres.NewConversationRepo(pool)
	messageRepo := postgres.NewMessageRepo(pool)

	hub := websocket.NewHub(conversationRepo)
	go hub.Run()

	conversationService := service.NewConversationService(conversationRepo, messageRepo, userRepo, appConfig, validator)
	messageService := service.NewMessageService(conversationRepo, messageRepo, appConfig, validator, hub, storageAdapter)

	conversationController := controller.NewConversationController(conversationService, messageService)
	messageController := controller.NewMessageController(messageService, appConfig)
	websocketController := controller.NewWebSocketController(hub)

	authMiddleware := middleware.NewAuthMiddleware(appConfig.JWTSecret)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(newLimiter(appConfig, redisAdapter), appConfig)

	r := config.NewChi(appConfig)
	route := NewRoute(appConfig, r, authMiddleware, rateLimitMiddleware, conversationController, messageController, websocketController)
	route.Register()

	return r
}

// newLimiter prefers the Redis counter so limits hold across replicas, and
// falls back to the in-process token bucket when Redis is not configured.
func newLimiter(appConfig *config.AppConfig, redisAdapter *adapter.RedisAdapter) middleware.Limiter {
	if redisAdapter != nil {
		return repository.NewRateLimitRepository(redisAdapter)
	}

	window := time.Duration(appConfig.MessageRateWindowSecs) * time.Second
	return &localLimiter{inner: config.NewRateLimiter(appConfig.MessageRateLimit, window)}
}

// localLimiter adapts the in-process limiter to the middleware surface. The
// per-call limit and window are fixed at construction for this backend.
type localLimiter struct {
	inner *config.RateLimiter
}

func (l *localLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, time.Duration, error) {
	allowed, retryAfter := l.inner.Allow(key)
	return allowed, retryAfter, nil
}
