package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Candles/internal/adapters/signal"
	"github.com/dkeye/Candles/internal/app"
	"github.com/dkeye/Candles/internal/config"
	"github.com/dkeye/Candles/internal/core"
	"github.com/dkeye/Candles/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const clientTokenSessionKey = "ct"

// RoomReader is the read-only view the query routes need.
type RoomReader interface {
	IsActive(room domain.RoomName) bool
	MembersOf(room domain.RoomName) []domain.Identity
	MemberByName(room domain.RoomName, name string) (domain.Identity, bool)
	Rooms() []core.RoomInfo
}

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware keeps a stable per-browser token in the signed
// session cookie, so reconnects of the same tab can be correlated in logs.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenSessionKey).(string)
		if token == "" {
			token = genClientToken()
			session.Set(clientTokenSessionKey, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set(signal.ClientTokenKey, token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, orch *app.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("CandlesSessions", store))
	r.Use(ClientTokenMiddleware())

	q := queryHandlers{rooms: orch.Registry}

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "hello world")
	})
	r.GET("/users", q.usersInRoom)

	api := r.Group("/api")
	api.GET("/rooms", q.listRooms)
	api.GET("/rooms/:room", q.roomInfo)
	api.GET("/rooms/:room/members", q.members)
	api.GET("/rooms/:room/members/:name", q.member)

	ctrl := signal.NewSignalWSController(orch, cfg)
	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("client", c.GetString(signal.ClientTokenKey)).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
