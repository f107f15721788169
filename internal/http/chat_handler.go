package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"valo-coach/internal/domain"
	"valo-coach/internal/llm"
	"valo-coach/internal/repository"
	"valo-coach/internal/service"
)

// ChatHandler mantiene dependencias para endpoints de chat e historial.
type ChatHandler struct {
	logger      *zap.Logger
	chatServ    *service.ChatService
	profileServ *service.ProfileService
	llmClient   llm.Client
	sessions    repository.SessionRepository
	messages    repository.MessageRepository
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(
	logger *zap.Logger,
	chatServ *service.ChatService,
	profileServ *service.ProfileService,
	llmClient llm.Client,
	sessions repository.SessionRepository,
	messages repository.MessageRepository,
) *ChatHandler {
	return &ChatHandler{
		logger:      logger,
		chatServ:    chatServ,
		profileServ: profileServ,
		llmClient:   llmClient,
		sessions:    sessions,
		messages:    messages,
	}
}

type chatMessagePayload struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// Generate maneja POST /api/chat: recibe el log completo y devuelve el texto
// generado, completo o como fragmentos concatenables.
func (h *ChatHandler) Generate(c *gin.Context) {
	var req struct {
		Messages []chatMessagePayload `json:"messages" binding:"required,min=1"`
		Stream   bool                 `json:"stream"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	log := make([]domain.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		log = append(log, domain.Message{Role: m.Role, Content: m.Content})
	}

	var profile *domain.UserProfile
	if claims, ok := GetAuthClaims(c); ok && h.profileServ != nil {
		if p, err := h.profileServ.Get(c.Request.Context(), claims.UserID); err == nil {
			profile = &p
		}
	}
	messages := service.BuildCoachMessages(profile, log)

	if req.Stream {
		h.generateStream(c, messages)
		return
	}

	content, err := h.llmClient.Complete(c.Request.Context(), messages)
	if err != nil {
		h.logger.Error("chat generate failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Gagal memproses permintaan chat",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": content})
}

func (h *ChatHandler) generateStream(c *gin.Context, messages []llm.Message) {
	c.Writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.Writer.Header().Set("Cache-Control", "no-cache")

	flusher, _ := c.Writer.(http.Flusher)
	wrote := false
	err := h.llmClient.Stream(c.Request.Context(), messages, func(chunk string) error {
		if _, werr := c.Writer.WriteString(chunk); werr != nil {
			return werr
		}
		wrote = true
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		h.logger.Error("chat stream failed", zap.Error(err))
		// Antes del primer fragmento aún podemos responder JSON de error.
		if !wrote {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Gagal memproses permintaan chat",
				"details": err.Error(),
			})
		}
	}
	// El status ya quedó comprometido con el primer fragmento escrito.
}

// CreateConversation maneja POST /api/conversations. Autenticación opcional:
// sin claims la conversación es anónima y vive solo en memoria.
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	userID := ""
	claims, authenticated := GetAuthClaims(c)
	if authenticated {
		userID = claims.UserID
	}

	conv := h.chatServ.StartConversation(userID)
	if authenticated && h.profileServ != nil {
		if p, err := h.profileServ.Get(c.Request.Context(), userID); err == nil {
			conv.SetProfile(&p)
		}
	}

	c.JSON(http.StatusCreated, gin.H{"conversation_id": conv.ID()})
}

// PostConversationMessage maneja POST /api/conversations/:id/messages.
func (h *ChatHandler) PostConversationMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid conversation message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	conv, err := h.chatServ.Conversation(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}

	userMsg, reply, err := conv.Submit(c.Request.Context(), req.Content)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty message"})
		case errors.Is(err, service.ErrReplyPending):
			c.JSON(http.StatusConflict, gin.H{"error": "reply pending"})
		default:
			h.logger.Error("conversation submit failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process message"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_message":      userMsg,
		"assistant_message": reply,
	})
}

// ListConversationMessages maneja GET /api/conversations/:id/messages.
func (h *ChatHandler) ListConversationMessages(c *gin.Context) {
	conv, err := h.chatServ.Conversation(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": conv.Messages(), "pending": conv.Pending()})
}

// ListSessions maneja GET /api/sessions: historial persistido del usuario.
func (h *ChatHandler) ListSessions(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	sessions, err := h.sessions.ListByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("list sessions failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list sessions"})
		return
	}
	if sessions == nil {
		sessions = []domain.ChatSession{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// ListSessionMessages maneja GET /api/sessions/:id/messages.
func (h *ChatHandler) ListSessionMessages(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	session, err := h.sessions.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil || session.UserID != claims.UserID {
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			h.logger.Error("get session failed", zap.Error(err))
		}
		// La propiedad ajena se responde igual que la inexistente.
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	messages, err := h.messages.ListBySessionID(c.Request.Context(), session.ID)
	if err != nil {
		h.logger.Error("list session messages failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list messages"})
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"session": session, "messages": messages})
}
