package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"valo-coach/internal/config"
	"valo-coach/internal/llm"
	"valo-coach/internal/service"
)

// Chat interactivo contra el coach, sin base de datos: la conversación es
// anónima y vive solo en memoria.
func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)
	chatSvc := service.NewChatService(logger, llmClient, nil, nil)
	conv := chatSvc.StartConversation("")

	fmt.Println("===== Valorant Coach =====")
	fmt.Println("Escribe tu pregunta (o /quit para salir).")

	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "/quit" || line == "/exit" {
			return
		}

		_, reply, err := conv.Submit(ctx, line)
		if err != nil {
			if errors.Is(err, service.ErrEmptyMessage) {
				continue
			}
			log.Printf("submit: %v", err)
			continue
		}
		fmt.Printf("\ncoach: %s\n\n", reply.Content)
	}
}
