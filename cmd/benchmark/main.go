package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"kbchat/config"
	"kbchat/internal/adapter/embedding"
	"kbchat/internal/adapter/vectorindex"
	"kbchat/internal/port"
)

func main() {
	dataDir := flag.String("dir", ".", "Path to data directory")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 10, "Number of results")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -dir . -q \"query\"")
		fmt.Println("\nTests:")
		fmt.Println("  1. Embedding infrastructure (model connection, vector index)")
		fmt.Println("  2. Semantic similarity (query vs results)")
		fmt.Println("  3. Cross-language retrieval (English and Hindi sections)")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding not available: %v\n", err)
		os.Exit(1)
	}

	index, err := vectorindex.NewBoltIndex(config.VectorDBPath(*dataDir), embedder.Dimension())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening vector index: %v\n", err)
		os.Exit(1)
	}
	defer index.Close()

	fmt.Println("SEMANTIC SEARCH BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("Sections indexed: %d\n", index.Count())
	fmt.Printf("Model: %s (%s)\n", cfg.Embedding.Model, cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", embedder.Dimension())
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	ctx := context.Background()
	queryVec, err := embedder.Embed(ctx, []string{*query})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Query embedded: %d dimensions\n\n", len(queryVec[0]))

	matches, err := index.Query(ctx, queryVec[0], *topK, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Top %d semantic matches:\n\n", len(matches))

	totalScore := 0.0
	for i, m := range matches {
		preview := strings.ReplaceAll(m.Metadata.Content, "\n", " ")
		if len(preview) > 150 {
			preview = preview[:150] + "..."
		}

		totalScore += m.Score
		fmt.Printf("%2d. [%.4f] %s / %s (%s)\n", i+1, m.Score, m.Metadata.DocumentID, m.Metadata.SectionTitle, m.Metadata.Language)
		fmt.Printf("    %s\n\n", preview)
	}

	if len(matches) > 0 {
		fmt.Println(strings.Repeat("=", 70))
		fmt.Printf("Average similarity: %.4f\n", totalScore/float64(len(matches)))
	}
}

func buildEmbedder(cfg *config.Config) (port.Embedder, error) {
	var (
		e   *embedding.OpenAIEmbedder
		err error
	)
	switch cfg.Embedding.Provider {
	case "openai":
		e, err = embedding.NewOpenAIEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model)
	case "ollama":
		e, err = embedding.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.BaseURL)
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	default:
		e, err = embedding.NewMistralEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model)
	}
	if err != nil {
		return nil, err
	}
	return e.WithBatchSize(cfg.Embedding.BatchSize), nil
}
