package http

import (
	"github.com/gin-gonic/gin"
	"github.com/richardliu001/event-stream-service/internal/config"
	"github.com/richardliu001/event-stream-service/internal/service"
	"github.com/richardliu001/event-stream-service/internal/stream"
	"go.uber.org/zap"
)

func NewRouter(pub *service.Publisher, inbox *service.Inbox, events stream.Querier, cfg *config.Config, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(LoggingMiddleware(log))
	r.Use(RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	r.Use(IdentityMiddleware())
	RegisterHandlers(r, pub, inbox, events, cfg.Stream, log)
	return r
}
