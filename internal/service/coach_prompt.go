package service

import (
	"fmt"
	"strings"

	"valo-coach/internal/domain"
	"valo-coach/internal/llm"
)

// Instrucción de sistema fija del coach; no es configurable por el usuario.
const coachSystemPrompt = `Kamu adalah AI Coach Valorant yang ahli dan berpengalaman. Kamu bisa berkomunikasi dalam bahasa Indonesia dan Inggris dengan lancar.

Kepribadian dan Gaya:
- Ramah, sabar, dan mendukung pemain untuk berkembang
- Memberikan saran yang praktis dan dapat diterapkan langsung
- Menggunakan terminologi Valorant yang tepat
- Bisa beradaptasi dengan level skill pemain (Iron sampai Radiant)

Keahlian Kamu:
- Strategi tim dan individual gameplay
- Rekomendasi agent berdasarkan map dan komposisi tim
- Tips aim training dan crosshair placement
- Map knowledge dan callouts
- Economy management dan buy strategies
- Positioning dan game sense
- Counter-strategi melawan agent tertentu
- Mental coaching dan mindset improvement

Selalu berikan:
1. Penjelasan yang mudah dipahami
2. Contoh konkret atau situasi spesifik
3. Tips yang bisa langsung dipraktikkan
4. Motivasi positif untuk terus berkembang

Jika pemain bertanya dalam bahasa Indonesia, jawab dalam bahasa Indonesia. Jika dalam bahasa Inggris, jawab dalam bahasa Inggris. Kamu juga bisa mencampur kedua bahasa jika diperlukan untuk menjelaskan terminologi Valorant.`

// BuildCoachMessages antepone la instrucción de sistema al log completo.
// El perfil solo personaliza el saludo/contexto del jugador; puede ser nil.
func BuildCoachMessages(profile *domain.UserProfile, log []domain.Message) []llm.Message {
	system := coachSystemPrompt
	if ctx := playerContext(profile); ctx != "" {
		system += "\n\n" + ctx
	}

	messages := make([]llm.Message, 0, len(log)+1)
	messages = append(messages, llm.Message{Role: "system", Content: system})
	for _, m := range log {
		// Solo viajan rol y contenido; los ids internos no se envían.
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	return messages
}

func playerContext(profile *domain.UserProfile) string {
	if profile == nil {
		return ""
	}
	var parts []string
	if profile.DisplayName != "" {
		parts = append(parts, fmt.Sprintf("nama: %s", profile.DisplayName))
	}
	if profile.ValorantAgent != "" {
		parts = append(parts, fmt.Sprintf("main agent: %s", profile.ValorantAgent))
	}
	if profile.ValorantRank != "" {
		parts = append(parts, fmt.Sprintf("rank: %s", profile.ValorantRank))
	}
	if len(parts) == 0 {
		return ""
	}
	return "Konteks pemain (" + strings.Join(parts, ", ") + ")."
}
