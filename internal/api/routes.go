package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/voxchat/internal/auth"
	"github.com/satriahrh/voxchat/internal/catalog"
	"github.com/satriahrh/voxchat/internal/websocket"
	"github.com/satriahrh/voxchat/usecase"
)

const (
	serviceName      = "voxchat"
	defaultBodyLimit = "25M"
	tokenPath        = "/api/auth/token"
)

// Dependencies are the services the routes dispatch to
type Dependencies struct {
	Chat    *usecase.ChatService
	Voice   *usecase.VoiceService
	Catalog *catalog.Catalog
	// Voices is the timbre table of the active synthesis provider. It defaults
	// to Catalog.Voices.
	Voices *catalog.Voices
	Auth   *auth.Authenticator
	Hub    *websocket.Hub
}

// ServerConfig tunes the echo instance
type ServerConfig struct {
	BodyLimit string
}

// NewServer creates the echo instance with middleware and routes installed
func NewServer(deps Dependencies, config ServerConfig, logger *zap.Logger) *echo.Echo {
	bodyLimit := config.BodyLimit
	if bodyLimit == "" {
		bodyLimit = defaultBodyLimit
		logger.Info("Using default body limit", zap.String("bodyLimit", bodyLimit))
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit(bodyLimit))

	InitRoutes(e, deps, logger)
	return e
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies, logger *zap.Logger) {
	if deps.Catalog == nil {
		deps.Catalog = catalog.New("")
	}
	if deps.Voices == nil {
		deps.Voices = deps.Catalog.Voices
	}
	if deps.Auth == nil {
		deps.Auth = auth.NewAuthenticator("", "")
	}
	h := &handler{deps: deps, logger: logger}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": serviceName,
		})
	})

	authenticated := deps.Auth.Middleware(logger, tokenPath)

	api := e.Group("/api", authenticated)
	api.POST("/auth/token", h.issueToken)
	api.GET("/models", h.listModels)
	api.GET("/voices", h.listVoices)

	api.POST("/chat", h.chatVoice)
	api.POST("/chat/text", h.chatText)
	api.POST("/chat/stream", h.chatStream)
	api.POST("/chat/audio/stream", h.chatAudioStream)

	if deps.Hub != nil {
		e.GET("/ws", h.relay, authenticated)
	}
}
