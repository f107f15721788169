package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"valo-coach/internal/llm"
)

func doJSON(t *testing.T, env *testEnv, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestSignUpEndpoint(t *testing.T) {
	env := newTestEnv(&llm.MockClient{}, nil)

	w := doJSON(t, env, http.MethodPost, "/api/auth/signup",
		`{"email":"coach@example.com","password":"secret1","repeat_password":"secret1","display_name":"Radiant"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(env.users.users) != 1 {
		t.Fatalf("expected user persisted")
	}
}

func TestSignUpEndpoint_PasswordMismatch(t *testing.T) {
	env := newTestEnv(&llm.MockClient{}, nil)

	w := doJSON(t, env, http.MethodPost, "/api/auth/signup",
		`{"email":"coach@example.com","password":"secret1","repeat_password":"different"}`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["error"] != "Passwords do not match" {
		t.Fatalf("unexpected error message: %v", body["error"])
	}
	// El chequeo es local: nada llega al repositorio.
	if env.users.calls != 0 {
		t.Fatalf("expected no repository calls, got %d", env.users.calls)
	}
}

func TestSignUpEndpoint_DuplicateEmail(t *testing.T) {
	env := newTestEnv(&llm.MockClient{}, nil)
	env.seedUser("u1", "coach@example.com", "Radiant")

	w := doJSON(t, env, http.MethodPost, "/api/auth/signup",
		`{"email":"coach@example.com","password":"secret1","repeat_password":"secret1"}`, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(&llm.MockClient{}, nil)

	if w := doJSON(t, env, http.MethodPost, "/api/auth/signup",
		`{"email":"coach@example.com","password":"secret1","repeat_password":"secret1"}`, ""); w.Code != http.StatusCreated {
		t.Fatalf("signup: %d", w.Code)
	}

	w := doJSON(t, env, http.MethodPost, "/api/auth/login",
		`{"email":"coach@example.com","password":"secret1"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	tokens, ok := body["tokens"].(map[string]any)
	if !ok || tokens["access_token"] == "" || tokens["refresh_token"] == "" {
		t.Fatalf("expected token pair, got %v", body)
	}

	w = doJSON(t, env, http.MethodPost, "/api/auth/login",
		`{"email":"coach@example.com","password":"wrong"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRefreshAndLogoutEndpoints(t *testing.T) {
	env := newTestEnv(&llm.MockClient{}, nil)

	if w := doJSON(t, env, http.MethodPost, "/api/auth/signup",
		`{"email":"coach@example.com","password":"secret1","repeat_password":"secret1"}`, ""); w.Code != http.StatusCreated {
		t.Fatalf("signup: %d", w.Code)
	}
	login := doJSON(t, env, http.MethodPost, "/api/auth/login",
		`{"email":"coach@example.com","password":"secret1"}`, "")
	tokens := decodeBody(t, login)["tokens"].(map[string]any)
	refresh := tokens["refresh_token"].(string)

	w := doJSON(t, env, http.MethodPost, "/api/auth/refresh",
		`{"refresh_token":"`+refresh+`"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// El refresh rotó el token anterior; reusarlo falla.
	w = doJSON(t, env, http.MethodPost, "/api/auth/refresh",
		`{"refresh_token":"`+refresh+`"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on reuse, got %d", w.Code)
	}

	rotated := decodeBody(t, doJSON(t, env, http.MethodPost, "/api/auth/login",
		`{"email":"coach@example.com","password":"secret1"}`, ""))["tokens"].(map[string]any)
	w = doJSON(t, env, http.MethodPost, "/api/auth/logout",
		`{"refresh_token":"`+rotated["refresh_token"].(string)+`"}`, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

func TestResendConfirmationEndpoint(t *testing.T) {
	env := newTestEnv(&llm.MockClient{}, nil)

	if w := doJSON(t, env, http.MethodPost, "/api/auth/signup",
		`{"email":"coach@example.com","password":"secret1","repeat_password":"secret1"}`, ""); w.Code != http.StatusCreated {
		t.Fatalf("signup: %d", w.Code)
	}
	var userID, oldHash string
	for id, user := range env.users.users {
		userID, oldHash = id, user.ConfirmTokenHash
	}

	w := doJSON(t, env, http.MethodPost, "/api/auth/resend",
		`{"email":"coach@example.com"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if env.users.users[userID].ConfirmTokenHash == oldHash {
		t.Fatalf("expected token hash rotated")
	}

	if w := doJSON(t, env, http.MethodPost, "/api/auth/resend",
		`{"email":"unknown@example.com"}`, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown email, got %d", w.Code)
	}
}

func TestMeEndpoint(t *testing.T) {
	env := newTestEnv(&llm.MockClient{}, nil)
	token := env.seedUser("u1", "coach@example.com", "Radiant")

	w := doJSON(t, env, http.MethodGet, "/api/auth/me", "", token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	user, ok := body["user"].(map[string]any)
	if !ok || user["email"] != "coach@example.com" {
		t.Fatalf("unexpected body: %v", body)
	}

	if w := doJSON(t, env, http.MethodGet, "/api/auth/me", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}
