package cli

import (
	"fmt"
	"log"
	"os"
	"time"

	"kbchat/config"
	"kbchat/internal/adapter/docstore"
	"kbchat/internal/adapter/embedding"
	"kbchat/internal/adapter/history"
	"kbchat/internal/adapter/llm"
	"kbchat/internal/adapter/vectorindex"
	"kbchat/internal/port"
)

// Deps bundles the configured adapters behind their ports.
type Deps struct {
	Embedder port.Embedder
	Index    port.VectorIndex
	History  port.ConversationStore
	LLM      port.LLM
	Docs     port.DocumentStore
	Logger   *log.Logger

	closers []func() error
}

// Close releases adapter resources in reverse construction order.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.Logger.Printf("warning: close failed: %v", err)
		}
	}
}

// buildDeps wires adapters from config. withLLM is false for commands
// that never generate text, so they work without a generation API key.
func buildDeps(cfg *config.Config, dataDir string, withLLM bool) (*Deps, error) {
	d := &Deps{Logger: log.New(os.Stderr, "", log.LstdFlags)}

	embedder, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	d.Embedder = embedder

	if err := config.EnsureDataDir(dataDir); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	index, closer, err := buildIndex(cfg.Vector, dataDir, embedder.Dimension())
	if err != nil {
		return nil, err
	}
	d.Index = index
	if closer != nil {
		d.closers = append(d.closers, closer)
	}

	docs, err := docstore.NewBoltStore(config.DocStorePath(dataDir))
	if err != nil {
		return nil, fmt.Errorf("failed to open document registry: %w", err)
	}
	d.Docs = docs
	d.closers = append(d.closers, docs.Close)

	d.History = buildHistory(cfg.History, d)

	if withLLM {
		if cfg.Generation.Model == "mock" {
			d.LLM = llm.MockClient{}
			return d, nil
		}
		client, err := llm.NewOpenRouterClient(cfg.Generation.APIKeyEnv, cfg.Generation.Model, llm.Options{
			BaseURL:     cfg.Generation.BaseURL,
			Referer:     cfg.Generation.Referer,
			AppTitle:    cfg.Generation.AppTitle,
			Temperature: cfg.Generation.Temperature,
			MaxTokens:   cfg.Generation.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build generation client: %w", err)
		}
		d.LLM = client
	}

	return d, nil
}

func buildEmbedder(cfg config.EmbeddingConfig) (port.Embedder, error) {
	var (
		e   *embedding.OpenAIEmbedder
		err error
	)
	switch cfg.Provider {
	case "mistral", "":
		e, err = embedding.NewMistralEmbedder(cfg.APIKeyEnv, cfg.Model)
	case "openai":
		e, err = embedding.NewOpenAIEmbedder(cfg.APIKeyEnv, cfg.Model)
	case "ollama":
		e, err = embedding.NewOllamaEmbedder(cfg.Model, cfg.BaseURL)
	case "compatible":
		e, err = embedding.NewOpenAICompatibleEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL)
	case "mock":
		return embedding.NewMockEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return e.WithBatchSize(cfg.BatchSize), nil
}

func buildIndex(cfg config.VectorConfig, dataDir string, dimension int) (port.VectorIndex, func() error, error) {
	switch cfg.Provider {
	case "bolt", "":
		path := cfg.Path
		if path == "" {
			path = config.VectorDBPath(dataDir)
		}
		index, err := vectorindex.NewBoltIndex(path, dimension)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open vector index: %w", err)
		}
		return index, index.Close, nil
	case "memory":
		return vectorindex.NewMemoryIndex(), nil, nil
	case "pinecone":
		index, err := vectorindex.NewPineconeIndex(cfg.APIKeyEnv, cfg.IndexName, cfg.Cloud, cfg.Region, dimension)
		if err != nil {
			return nil, nil, err
		}
		return index, nil, nil
	case "postgres":
		index, err := vectorindex.NewPostgresIndex(cfg.DSN, dimension)
		if err != nil {
			return nil, nil, err
		}
		return index, index.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector provider: %s", cfg.Provider)
	}
}

func buildHistory(cfg config.HistoryConfig, d *Deps) port.ConversationStore {
	switch cfg.Provider {
	case "redis":
		store := history.NewRedisStore(cfg.Addr, cfg.Password, cfg.DB, time.Duration(cfg.TTLHours)*time.Hour)
		d.closers = append(d.closers, store.Close)
		return store
	default:
		return history.NewMemoryStore()
	}
}
