package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richardliu001/event-stream-service/internal/config"
	"github.com/richardliu001/event-stream-service/internal/repo"
	"github.com/richardliu001/event-stream-service/internal/service"
	"github.com/richardliu001/event-stream-service/internal/stream"
	"go.uber.org/zap"
)

func RegisterHandlers(r *gin.Engine, pub *service.Publisher, inbox *service.Inbox, events stream.Querier, streamCfg config.StreamConfig, log *zap.SugaredLogger) {
	r.GET("/stream", streamHandler(events, streamCfg, log))
	r.POST("/test", testHandler(pub))
	r.GET("/config", configHandler(streamCfg))

	n := r.Group("/notifications")
	{
		n.GET("", listNotificationsHandler(inbox))
		n.POST("/:id/read", markReadHandler(inbox))
		n.POST("/read-all", markAllReadHandler(inbox))
	}
}

func streamHandler(events stream.Querier, cfg config.StreamConfig, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		c.Writer.WriteHeader(http.StatusOK)

		conn := stream.NewConnection(events, ActorID(c), c.Writer, func() { c.Writer.Flush() }, log, stream.Options{
			PollInterval:      cfg.PollInterval(),
			HeartbeatInterval: cfg.HeartbeatInterval(),
		})
		// Run blocks for the life of the connection; the request context is
		// cancelled when the client disconnects.
		if err := conn.Run(c.Request.Context()); err != nil {
			log.Warnf("stream closed: %v", err)
		}
	}
}

func testHandler(pub *service.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorID(c)
		published := 0
		if pub.Publish(c, "test", "ping", map[string]interface{}{"message": "ping"}, actor) {
			published++
		}
		if pub.Publish(c, "todos", "test_event", map[string]interface{}{"message": "hello from /test"}, actor) {
			published++
		}
		c.JSON(http.StatusOK, gin.H{
			"success":          published == 2,
			"message":          "test events published",
			"events_published": published,
		})
	}
}

func configHandler(cfg config.StreamConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{
			"stream_url":        "/stream",
			"poll_interval_ms":  int(cfg.PollInterval().Milliseconds()),
			"heartbeat_seconds": int(cfg.HeartbeatInterval().Seconds()),
		}
		if actor := ActorID(c); actor != nil {
			resp["actor_id"] = *actor
		}
		c.JSON(http.StatusOK, resp)
	}
}

func listNotificationsHandler(inbox *service.Inbox) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorID(c)
		if actor == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
			return
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if err != nil || limit <= 0 {
			limit = 50
		}
		ns, unread, err := inbox.List(c, *actor, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": ns, "unread": unread})
	}
}

func markReadHandler(inbox *service.Inbox) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorID(c)
		if actor == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
			return
		}
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		if err := inbox.MarkRead(c, *actor, id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func markAllReadHandler(inbox *service.Inbox) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorID(c)
		if actor == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
			return
		}
		n, err := inbox.MarkAllRead(c, *actor)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "marked": n})
	}
}
