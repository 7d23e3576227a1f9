package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/asub927/human-vs-ai-app/internal/adapters/llm"
	"github.com/asub927/human-vs-ai-app/internal/adapters/storage/memory"
	sqlitestore "github.com/asub927/human-vs-ai-app/internal/adapters/storage/sqlite"
	"github.com/asub927/human-vs-ai-app/internal/app/analytics"
	"github.com/asub927/human-vs-ai-app/internal/app/assistant"
	"github.com/asub927/human-vs-ai-app/internal/app/chat"
	"github.com/asub927/human-vs-ai-app/internal/app/projects"
	"github.com/asub927/human-vs-ai-app/internal/app/tasks"
	"github.com/asub927/human-vs-ai-app/internal/config"
	"github.com/asub927/human-vs-ai-app/internal/domain"

	httpadapter "github.com/asub927/human-vs-ai-app/internal/adapters/http"
)

func main() {
	ctx := context.Background()

	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err == nil {
		log.Println("[config] loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var llmClient domain.LLMClient
	if cfg.UseMockLLM {
		log.Println("[llm] using mock LLM client")
		llmClient = llm.NewMockLLM()
	} else {
		log.Printf("[llm] using Gemini client (model=%s)", cfg.ModelName)
		llmClient, err = llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.ModelName)
		if err != nil {
			log.Fatalf("error initializing Gemini client: %v", err)
		}
	}

	var (
		sessionStore domain.SessionStore
		messageStore domain.MessageStore
		projectStore domain.ProjectStore
		taskStore    domain.TaskStore
		historyStore domain.HistoryStore
	)

	switch cfg.StorageBackend {
	case "sqlite":
		log.Printf("[store] using sqlite storage (path=%s)", cfg.SQLitePath)
		store, err := sqlitestore.NewStore(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("error initializing sqlite store: %v", err)
		}
		defer store.Close()

		// one store, implements every port
		sessionStore = store
		messageStore = store
		projectStore = store
		taskStore = store
		historyStore = store

	default:
		log.Println("[store] using in-memory storage")
		sessionStore = memory.NewSessionStore()
		messageStore = memory.NewMessageStore()
		projectStore = memory.NewProjectStore()
		taskStore = memory.NewTaskStore()
		historyStore = memory.NewHistoryStore()
	}

	projectSvc := projects.NewService(projectStore)
	taskSvc := tasks.NewService(taskStore, projectStore)
	analyticsSvc := analytics.NewService(taskStore, projectStore)
	assistantSvc := assistant.NewService(llmClient, taskStore, projectStore, historyStore)
	chatSvc := chat.NewService(llmClient, sessionStore, messageStore, projectStore, projectSvc, taskSvc, cfg.LLMTimeout)

	handler := httpadapter.NewServer(chatSvc, projectSvc, taskSvc, analyticsSvc, assistantSvc)

	addr := ":" + cfg.Port
	log.Println("human-vs-ai API listening on", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatal(err)
	}
}
