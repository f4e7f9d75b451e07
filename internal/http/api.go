package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"auth-gateway/internal/domain"
	"auth-gateway/internal/service"
	"auth-gateway/internal/token"
	"auth-gateway/internal/validation"
)

const (
	msgRegistered     = "registration successful"
	msgLoggedOut      = "logout successful"
	msgRefreshMissing = "refresh token is required"
	msgRefreshInvalid = "invalid or already-used refresh token"
)

// TokenIssuer is the part of token.Issuer the handlers use.
type TokenIssuer interface {
	Issue(user *domain.User) (domain.TokenPair, error)
	ParseAccess(tokenString string) (*token.Claims, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Revoke(ctx context.Context, refreshToken string) error
}

// Handler wires HTTP routes to the identity backend and token issuer.
type Handler struct {
	backend service.IdentityBackend
	tokens  TokenIssuer
	logger  logrus.FieldLogger
	mode    string
}

func NewHandler(backend service.IdentityBackend, tokens TokenIssuer, logger logrus.FieldLogger, mode string) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		backend: backend,
		tokens:  tokens,
		logger:  logger,
		mode:    mode,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger))
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.GET("/health", h.health)

		auth := api.Group("/auth")
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
		auth.POST("/token/refresh", h.refresh)

		protected := auth.Group("")
		protected.Use(authenticate(h.tokens))
		protected.POST("/logout", h.logout)
		protected.GET("/me", h.me)
	}
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type authResponse struct {
	Message string       `json:"message,omitempty"`
	User    UserResponse `json:"user"`
	Access  string       `json:"access"`
	Refresh string       `json:"refresh"`
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": h.mode})
}

func (h *Handler) register(c *gin.Context) {
	var req validation.RegisterInput
	if err := validation.FromDecodeError(c.ShouldBindJSON(&req)); err != nil {
		h.fail(c, err)
		return
	}

	reg, err := validation.Registration(req)
	if err != nil {
		h.fail(c, err)
		return
	}

	user, err := h.backend.CreateAccount(c.Request.Context(), reg)
	if err != nil {
		h.fail(c, err)
		return
	}

	pair, err := h.tokens.Issue(user)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.logger.WithField("user_id", user.ID).Info("user registered")
	c.JSON(http.StatusCreated, authResponse{
		Message: msgRegistered,
		User:    userToResponse(user),
		Access:  pair.Access,
		Refresh: pair.Refresh,
	})
}

func (h *Handler) login(c *gin.Context) {
	var req validation.LoginInput
	if err := validation.FromDecodeError(c.ShouldBindJSON(&req)); err != nil {
		h.fail(c, err)
		return
	}

	creds, err := validation.Login(req)
	if err != nil {
		h.fail(c, err)
		return
	}

	user, err := h.backend.Authenticate(c.Request.Context(), creds.Username, creds.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	pair, err := h.tokens.Issue(user)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, authResponse{
		User:    userToResponse(user),
		Access:  pair.Access,
		Refresh: pair.Refresh,
	})
}

func (h *Handler) logout(c *gin.Context) {
	refresh, ok := h.bindRefresh(c)
	if !ok {
		return
	}

	if err := h.tokens.Revoke(c.Request.Context(), refresh); err != nil {
		if !errors.Is(err, token.ErrInvalidToken) {
			h.logger.WithError(err).Error("revoke refresh token")
		}
		c.JSON(http.StatusBadRequest, gin.H{"detail": msgRefreshInvalid})
		return
	}

	c.JSON(http.StatusResetContent, gin.H{"message": msgLoggedOut})
}

func (h *Handler) refresh(c *gin.Context) {
	refresh, ok := h.bindRefresh(c)
	if !ok {
		return
	}

	access, err := h.tokens.Refresh(c.Request.Context(), refresh)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}

func (h *Handler) me(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": msgNoCredentials})
		return
	}

	user, err := h.backend.FetchProfile(c.Request.Context(), principal)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profileToResponse(user))
}

func (h *Handler) bindRefresh(c *gin.Context) (string, bool) {
	var req refreshRequest
	if err := validation.FromDecodeError(c.ShouldBindJSON(&req)); err != nil {
		h.fail(c, err)
		return "", false
	}
	refresh := strings.TrimSpace(req.Refresh)
	if refresh == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": msgRefreshMissing})
		return "", false
	}
	return refresh, true
}
