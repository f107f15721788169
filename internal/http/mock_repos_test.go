package http

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"valo-coach/internal/domain"
	"valo-coach/internal/llm"
	"valo-coach/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUserRepo struct {
	users map[string]domain.User
	calls int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]domain.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user domain.User) error {
	f.calls++
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	f.calls++
	user, ok := f.users[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	f.calls++
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (f *fakeUserRepo) UpdateConfirmToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	f.calls++
	user, ok := f.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.ConfirmTokenHash = tokenHash
	user.ConfirmExpiresAt = &expiresAt
	f.users[id] = user
	return nil
}

func (f *fakeUserRepo) ConfirmEmail(_ context.Context, id string, confirmedAt time.Time) error {
	f.calls++
	user, ok := f.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.EmailConfirmedAt = &confirmedAt
	user.ConfirmTokenHash = ""
	user.ConfirmExpiresAt = nil
	f.users[id] = user
	return nil
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]domain.UserProfile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]domain.UserProfile)}
}

func (f *fakeProfileRepo) GetByID(_ context.Context, id string) (domain.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[id]
	if !ok {
		return domain.UserProfile{}, pgx.ErrNoRows
	}
	return profile, nil
}

func (f *fakeProfileRepo) Upsert(_ context.Context, profile domain.UserProfile) (domain.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[profile.ID] = profile
	return profile, nil
}

func (f *fakeProfileRepo) get(id string) domain.UserProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[id]
}

func (f *fakeProfileRepo) put(profile domain.UserProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[profile.ID] = profile
}

type fakeSessionRepo struct {
	sessions map[string]domain.ChatSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]domain.ChatSession)}
}

func (f *fakeSessionRepo) Create(_ context.Context, session domain.ChatSession) error {
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeSessionRepo) GetByID(_ context.Context, id string) (domain.ChatSession, error) {
	session, ok := f.sessions[id]
	if !ok {
		return domain.ChatSession{}, pgx.ErrNoRows
	}
	return session, nil
}

func (f *fakeSessionRepo) ListByUserID(_ context.Context, userID string) ([]domain.ChatSession, error) {
	var out []domain.ChatSession
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) Touch(_ context.Context, id string, updatedAt time.Time) error {
	session, ok := f.sessions[id]
	if !ok {
		return pgx.ErrNoRows
	}
	session.UpdatedAt = updatedAt
	f.sessions[id] = session
	return nil
}

type fakeMessageRepo struct {
	messages []domain.Message
}

func (f *fakeMessageRepo) Create(_ context.Context, message domain.Message) error {
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeMessageRepo) ListBySessionID(_ context.Context, sessionID string) ([]domain.Message, error) {
	var out []domain.Message
	for _, msg := range f.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	return out, nil
}

// testEnv arma el router completo con repos falsos y un LLM simulado.
type testEnv struct {
	router   *gin.Engine
	users    *fakeUserRepo
	profiles *fakeProfileRepo
	sessions *fakeSessionRepo
	messages *fakeMessageRepo
	jwt      *service.JWTService
	profileH *ProfileHandler
}

func newTestEnv(llmClient llm.Client, limiter service.RateLimiter) *testEnv {
	logger := zap.NewNop()
	users := newFakeUserRepo()
	profiles := newFakeProfileRepo()
	sessions := newFakeSessionRepo()
	messages := &fakeMessageRepo{}

	jwtSvc := service.NewJWTService("test-secret", time.Minute, time.Hour)
	userServ := service.NewUserService(logger, users, nil, "")
	profileServ := service.NewProfileService(logger, profiles, users)
	chatServ := service.NewChatService(logger, llmClient, sessions, messages)

	userH := NewUserHandler(logger, userServ, jwtSvc)
	profileH := NewProfileHandler(logger, profileServ)
	chatH := NewChatHandler(logger, chatServ, profileServ, llmClient, sessions, messages)

	return &testEnv{
		router:   NewRouter(logger, jwtSvc, limiter, userH, profileH, chatH),
		users:    users,
		profiles: profiles,
		sessions: sessions,
		messages: messages,
		jwt:      jwtSvc,
		profileH: profileH,
	}
}

// seedUser inserta un usuario y devuelve un access token válido.
func (e *testEnv) seedUser(id, email, displayName string) string {
	user := domain.User{
		ID:          id,
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
	e.users.users[id] = user
	pair, err := e.jwt.GeneratePair(user)
	if err != nil {
		panic(err)
	}
	return pair.AccessToken
}
