package http

import (
	"net/http"
	"testing"
	"time"

	"valo-coach/internal/domain"
	"valo-coach/internal/llm"
)

func TestGetProfileEndpoint(t *testing.T) {
	env := newTestEnv(&llm.MockClient{}, nil)
	token := env.seedUser("u1", "coach@example.com", "Radiant")

	w := doJSON(t, env, http.MethodGet, "/api/auth/profile", "", token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	profile, ok := body["profile"].(map[string]any)
	if !ok {
		t.Fatalf("expected profile in body: %v", body)
	}
	// Primera lectura: el perfil se inicializa desde la fila de usuario.
	if profile["email"] != "coach@example.com" || profile["display_name"] != "Radiant" {
		t.Fatalf("unexpected profile: %v", profile)
	}
	if env.profiles.get("u1").ID == "" {
		t.Fatalf("expected profile persisted on first read")
	}
}

func TestGetProfileEndpoint_RequiresAuth(t *testing.T) {
	env := newTestEnv(&llm.MockClient{}, nil)
	if w := doJSON(t, env, http.MethodGet, "/api/auth/profile", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestUpdateProfileEndpoint(t *testing.T) {
	env := newTestEnv(&llm.MockClient{}, nil)
	token := env.seedUser("u1", "coach@example.com", "Radiant")
	env.profiles.put(domain.UserProfile{
		ID:            "u1",
		Email:         "coach@example.com",
		DisplayName:   "Radiant",
		ValorantAgent: "Jett",
	})

	w := doJSON(t, env, http.MethodPut, "/api/auth/profile",
		`{"valorant_rank":"Immortal 2"}`, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	saved := env.profiles.get("u1")
	if saved.ValorantRank != "Immortal 2" {
		t.Fatalf("expected rank saved, got %+v", saved)
	}
	// Los campos no enviados se conservan.
	if saved.ValorantAgent != "Jett" || saved.DisplayName != "Radiant" {
		t.Fatalf("expected untouched fields preserved, got %+v", saved)
	}
}

func TestAutosaveProfileEndpoint_CoalescesEdits(t *testing.T) {
	env := newTestEnv(&llm.MockClient{}, nil)
	token := env.seedUser("u1", "coach@example.com", "Radiant")
	env.profiles.put(domain.UserProfile{ID: "u1", DisplayName: "Radiant"})
	env.profileH.autosaveDelay = 30 * time.Millisecond

	for _, body := range []string{
		`{"valorant_rank":"Gold"}`,
		`{"valorant_rank":"Gold 2"}`,
		`{"valorant_agent":"Omen"}`,
	} {
		w := doJSON(t, env, http.MethodPatch, "/api/auth/profile", body, token)
		if w.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
		}
	}

	// Nada se persiste antes del periodo de quietud.
	if env.profiles.get("u1").ValorantRank != "" {
		t.Fatalf("expected no save yet, got %+v", env.profiles.get("u1"))
	}

	deadline := time.Now().Add(time.Second)
	for env.profiles.get("u1").ValorantRank == "" && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	saved := env.profiles.get("u1")
	if saved.ValorantRank != "Gold 2" || saved.ValorantAgent != "Omen" {
		t.Fatalf("expected coalesced save, got %+v", saved)
	}
}

func TestAutosaveProfileEndpoint_Validation(t *testing.T) {
	env := newTestEnv(&llm.MockClient{}, nil)
	token := env.seedUser("u1", "coach@example.com", "Radiant")

	if w := doJSON(t, env, http.MethodPatch, "/api/auth/profile", `{}`, token); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty patch, got %d", w.Code)
	}
	if w := doJSON(t, env, http.MethodPatch, "/api/auth/profile", `{"valorant_rank":"Gold"}`, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}
