package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shopdesk/supportbot/internal/auth"
	"github.com/shopdesk/supportbot/internal/chat"
	"github.com/shopdesk/supportbot/internal/db"
	"github.com/shopdesk/supportbot/internal/extract"
	"github.com/shopdesk/supportbot/internal/models"
	"github.com/shopdesk/supportbot/internal/prompt"
)

// ConversationReader serves the history endpoints.
type ConversationReader interface {
	Find(ctx context.Context, userID, conversationID string) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID string) ([]models.Conversation, error)
}

type Handler struct {
	authService   *auth.Service
	chatService   *chat.Service
	conversations ConversationReader
	extractor     *extract.Extractor
	logger        *zap.SugaredLogger
}

func NewHandler(authService *auth.Service, chatService *chat.Service, conversations ConversationReader, extractor *extract.Extractor, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		authService:   authService,
		chatService:   chatService,
		conversations: conversations,
		extractor:     extractor,
		logger:        logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"root": "Standard root"})
	})

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "No such routes available"})
	})

	apiGroup := router.Group("/api")
	apiGroup.POST("/V1/chat", h.handleWidgetChat)

	authGroup := apiGroup.Group("/auth")
	authGroup.POST("/register", h.handleRegister)
	authGroup.POST("/login", h.handleLogin)

	protected := router.Group("/", h.authService.Middleware())
	protected.POST("/chat", h.handleChat)
	protected.GET("/history", h.handleHistory)
	protected.GET("/history/:conversationId", h.handleConversation)
}

// handleWidgetChat serves the public widget: multipart message plus an
// optional image or PDF upload, stateless reply.
func (h *Handler) handleWidgetChat(c *gin.Context) {
	message := c.PostForm("message")

	fileText, err := h.extractUpload(c)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedMediaType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported file format"})
			return
		}
		h.logger.Warnw("file extraction failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process chat request"})
		return
	}

	answer, err := h.chatService.RespondOnce(c.Request.Context(), message, fileText)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message or file is required"})
			return
		}
		h.logger.Warnw("widget chat failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process chat request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": answer})
}

func (h *Handler) extractUpload(c *gin.Context) (string, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}

	return h.extractor.Extract(c.Request.Context(), data, fileHeader.Header.Get("Content-Type"))
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

func (h *Handler) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	result, err := h.chatService.Respond(c.Request.Context(), chat.Request{
		UserID:         auth.UserID(c),
		ConversationID: req.ConversationID,
		Message:        req.Message,
	})
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		case errors.Is(err, db.ErrConversationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		default:
			h.logger.Warnw("chat request failed", "error", err, "user_id", auth.UserID(c))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process your request"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"answer":         result.Answer,
		"conversationId": result.ConversationID,
	})
}

func (h *Handler) handleHistory(c *gin.Context) {
	conversations, err := h.conversations.ListByUser(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.logger.Warnw("history listing failed", "error", err, "user_id", auth.UserID(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversation history"})
		return
	}

	summaries := make([]gin.H, 0, len(conversations))
	for _, conv := range conversations {
		summaries = append(summaries, gin.H{
			"title":          conv.Title,
			"conversationId": conv.ID,
		})
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

func (h *Handler) handleConversation(c *gin.Context) {
	conv, err := h.conversations.Find(c.Request.Context(), auth.UserID(c), c.Param("conversationId"))
	if err != nil {
		if errors.Is(err, db.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
			return
		}
		h.logger.Warnw("conversation fetch failed", "error", err, "user_id", auth.UserID(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversation messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": prompt.Window(conv.Messages, prompt.HistoryWindow)})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (h *Handler) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	result, err := h.authService.Register(c.Request.Context(), auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameRequired), errors.Is(err, auth.ErrPasswordTooWeak):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, auth.ErrUserExists), errors.Is(err, auth.ErrEmailExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Warnw("registration failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register user"})
		}
		return
	}

	c.JSON(http.StatusCreated, newAuthResponse(result))
}

func (h *Handler) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), auth.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		h.logger.Warnw("login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to login"})
		return
	}

	c.JSON(http.StatusOK, newAuthResponse(result))
}

func newAuthResponse(result *auth.AuthResult) gin.H {
	return gin.H{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt.Format(time.RFC3339),
		"user": gin.H{
			"id":        result.User.ID,
			"username":  result.User.Username,
			"email":     result.User.Email,
			"createdAt": result.User.CreatedAt.Format(time.RFC3339),
		},
	}
}
