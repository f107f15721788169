package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"valo-coach/internal/domain"
	"valo-coach/internal/llm"
	"valo-coach/internal/repository"
)

var (
	ErrEmptyMessage         = errors.New("empty message")
	ErrReplyPending         = errors.New("reply pending")
	ErrConversationNotFound = errors.New("conversation not found")
)

// Textos fijos que reemplazan un fallo de generación; la conversación nunca
// queda sin respuesta visible.
const (
	assistantErrorText = "Sorry, I encountered an error. Please try again."
	assistantEmptyText = "Sorry, I couldn't generate a response."
)

const defaultSessionTitle = "New Chat"

// Límites del registro en memoria; las conversaciones abandonadas no pueden
// acumularse sin tope.
const (
	defaultMaxConversations = 1000
	defaultConversationTTL  = time.Hour
)

// ChatService es dueño de las conversaciones activas y sus dependencias.
type ChatService struct {
	logger    *zap.Logger
	llmClient llm.Client
	sessions  repository.SessionRepository
	messages  repository.MessageRepository

	maxConversations int
	conversationTTL  time.Duration

	mu            sync.Mutex
	conversations map[string]*Conversation
}

func NewChatService(
	logger *zap.Logger,
	llmClient llm.Client,
	sessions repository.SessionRepository,
	messages repository.MessageRepository,
) *ChatService {
	return NewChatServiceWithLimits(logger, llmClient, sessions, messages, defaultMaxConversations, defaultConversationTTL)
}

func NewChatServiceWithLimits(
	logger *zap.Logger,
	llmClient llm.Client,
	sessions repository.SessionRepository,
	messages repository.MessageRepository,
	maxConversations int,
	conversationTTL time.Duration,
) *ChatService {
	if maxConversations <= 0 {
		maxConversations = defaultMaxConversations
	}
	if conversationTTL <= 0 {
		conversationTTL = defaultConversationTTL
	}
	return &ChatService{
		logger:           logger,
		llmClient:        llmClient,
		sessions:         sessions,
		messages:         messages,
		maxConversations: maxConversations,
		conversationTTL:  conversationTTL,
		conversations:    make(map[string]*Conversation),
	}
}

// StartConversation crea una conversación nueva. userID vacío significa
// anónima: los mensajes viven solo en memoria y nada se persiste.
func (s *ChatService) StartConversation(userID string) *Conversation {
	now := time.Now().UTC()
	c := &Conversation{
		id:         uuid.NewString(),
		userID:     userID,
		svc:        s,
		subs:       make(map[int]func(domain.Message)),
		lastActive: now,
	}
	s.mu.Lock()
	s.evictLocked(now)
	s.conversations[c.id] = c
	s.mu.Unlock()
	return c
}

func (s *ChatService) Conversation(id string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	c.touchActive(time.Now().UTC())
	return c, nil
}

// evictLocked descarta conversaciones inactivas por TTL y, si el registro
// sigue lleno, las menos recientes. Requiere s.mu tomado.
func (s *ChatService) evictLocked(now time.Time) {
	cutoff := now.Add(-s.conversationTTL)
	for id, c := range s.conversations {
		if c.activeAt().Before(cutoff) {
			delete(s.conversations, id)
		}
	}
	for len(s.conversations) >= s.maxConversations {
		oldestID := ""
		var oldest time.Time
		for id, c := range s.conversations {
			at := c.activeAt()
			if oldestID == "" || at.Before(oldest) {
				oldestID = id
				oldest = at
			}
		}
		if oldestID == "" {
			return
		}
		delete(s.conversations, oldestID)
	}
}

// Conversation posee el log ordenado de una conversación y su ciclo de envío.
// A lo sumo una generación en vuelo por instancia.
type Conversation struct {
	id     string
	userID string
	svc    *ChatService

	mu         sync.Mutex
	log        []domain.Message
	pending    bool
	session    *domain.ChatSession
	profile    *domain.UserProfile
	subs       map[int]func(domain.Message)
	nextSub    int
	lastActive time.Time
}

func (c *Conversation) touchActive(now time.Time) {
	c.mu.Lock()
	c.lastActive = now
	c.mu.Unlock()
}

func (c *Conversation) activeAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

func (c *Conversation) ID() string { return c.id }

func (c *Conversation) UserID() string { return c.userID }

func (c *Conversation) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Messages devuelve una copia del log en orden de inserción.
func (c *Conversation) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Message, len(c.log))
	copy(out, c.log)
	return out
}

// Session devuelve la sesión persistida ligada, o nil en modo memoria.
func (c *Conversation) Session() *domain.ChatSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// SetProfile guarda el perfil actual; solo personaliza el contexto del coach.
func (c *Conversation) SetProfile(profile *domain.UserProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profile = profile
}

// Subscribe registra un callback invocado tras cada append al log.
// Devuelve la función para cancelar la suscripción.
func (c *Conversation) Subscribe(fn func(domain.Message)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Submit agrega el mensaje del usuario, invoca al LLM con el log completo
// acumulado y agrega la respuesta del asistente. Un fallo de generación se
// convierte en el texto de disculpa fijo, nunca en un error para el caller.
func (c *Conversation) Submit(ctx context.Context, text string) (domain.Message, domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, domain.Message{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return domain.Message{}, domain.Message{}, ErrReplyPending
	}
	c.pending = true
	userMsg := domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleUser,
		Content:   text,
		CreatedAt: time.Now().UTC(),
	}
	c.log = append(c.log, userMsg)
	c.lastActive = userMsg.CreatedAt
	logCopy := make([]domain.Message, len(c.log))
	copy(logCopy, c.log)
	profile := c.profile
	c.mu.Unlock()
	c.notify(userMsg)

	// Una sesión se liga en el primer envío autenticado; si la creación
	// falla la conversación sigue en modo memoria.
	c.ensureSession(ctx)

	content, err := c.svc.llmClient.Complete(ctx, BuildCoachMessages(profile, logCopy))
	switch {
	case err != nil:
		c.svc.logger.Warn("llm generate failed", zap.String("conversation_id", c.id), zap.Error(err))
		content = assistantErrorText
	case strings.TrimSpace(content) == "":
		content = assistantEmptyText
	}

	reply := domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleAssistant,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	c.mu.Lock()
	c.log = append(c.log, reply)
	c.pending = false
	c.lastActive = reply.CreatedAt
	session := c.session
	c.mu.Unlock()
	c.notify(reply)

	// Persistencia best-effort, recién después de ambos appends en memoria.
	if session != nil {
		c.persistExchange(ctx, session, userMsg, reply)
	}

	return userMsg, reply, nil
}

func (c *Conversation) ensureSession(ctx context.Context) {
	if c.userID == "" || c.svc.sessions == nil {
		return
	}
	c.mu.Lock()
	if c.session != nil {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	now := time.Now().UTC()
	session := domain.ChatSession{
		ID:        uuid.NewString(),
		UserID:    c.userID,
		Title:     defaultSessionTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.svc.sessions.Create(ctx, session); err != nil {
		c.svc.logger.Warn("create chat session failed",
			zap.String("conversation_id", c.id),
			zap.Error(err),
		)
		return
	}

	c.mu.Lock()
	c.session = &session
	c.mu.Unlock()
}

func (c *Conversation) persistExchange(ctx context.Context, session *domain.ChatSession, userMsg, reply domain.Message) {
	if c.svc.messages == nil {
		return
	}
	for _, msg := range []domain.Message{userMsg, reply} {
		msg.SessionID = session.ID
		if err := c.svc.messages.Create(ctx, msg); err != nil {
			c.svc.logger.Warn("persist chat message failed",
				zap.String("session_id", session.ID),
				zap.String("role", msg.Role),
				zap.Error(err),
			)
		}
	}
	if err := c.svc.sessions.Touch(ctx, session.ID, reply.CreatedAt); err != nil {
		c.svc.logger.Warn("touch chat session failed", zap.String("session_id", session.ID), zap.Error(err))
	}
}

func (c *Conversation) notify(msg domain.Message) {
	c.mu.Lock()
	fns := make([]func(domain.Message), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(msg)
	}
}
