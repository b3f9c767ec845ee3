package cli

import (
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"kbchat/internal/adapter/cache"
	"kbchat/internal/server"
	"kbchat/internal/usecase"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the chat and admin HTTP API.

Endpoints:
  POST /api/chat                      Ask a question
  POST /api/admin/documents           Upload a document
  GET  /api/admin/documents           List documents
  GET  /api/admin/kb-status           Knowledge-base status
  GET  /healthz                       Liveness check`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	deps, err := buildDeps(cfg, GetRootDir(), true)
	if err != nil {
		return err
	}
	defer deps.Close()

	ingestLogger := log.New(os.Stderr, "[INGEST] ", log.LstdFlags)
	chatLogger := log.New(os.Stderr, "[CHAT] ", log.LstdFlags)

	queryCache := cache.NewQueryCache(100, 5*time.Minute)
	ingest := usecase.NewIngestUseCase(cfg.Ingest.MaxChunkSize, deps.Embedder, deps.Index, deps.Docs, ingestLogger).
		OnWrite(queryCache.Invalidate)
	retrieve := usecase.NewRetrieveUseCase(deps.Embedder, deps.Index, cfg.Retrieve.TopK, chatLogger).
		WithCache(queryCache)
	chat := usecase.NewChatUseCase(retrieve, deps.LLM, deps.History, chatLogger)

	srv := server.New(chat, ingest, deps.Docs, server.StatusInfo{
		EmbeddingModel:  deps.Embedder.ModelName(),
		GenerationModel: deps.LLM.ModelName(),
		VectorProvider:  cfg.Vector.Provider,
	})

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	deps.Logger.Printf("listening on %s", addr)
	return srv.Run(addr)
}
