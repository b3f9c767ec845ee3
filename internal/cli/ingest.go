package cli

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"kbchat/internal/adapter/chunker"
	"kbchat/internal/adapter/fs"
	"kbchat/internal/usecase"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest documents into the knowledge base",
	Long: `Scan a directory for markdown and text documents, chunk them into
sections, embed them, and index them for retrieval.

Examples:
  kbchat ingest ./docs     # Ingest a documentation directory
  kbchat ingest .          # Ingest the current directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	cfg := GetConfig()
	deps, err := buildDeps(cfg, GetRootDir(), false)
	if err != nil {
		return err
	}
	defer deps.Close()

	walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
	files, err := walker.Scan(path)
	if err != nil {
		return fmt.Errorf("failed to scan directory: %w", err)
	}
	if len(files) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	ingest := usecase.NewIngestUseCase(
		cfg.Ingest.MaxChunkSize,
		deps.Embedder,
		deps.Index,
		deps.Docs,
		log.New(os.Stderr, "[INGEST] ", log.LstdFlags),
	)

	bar := progressbar.Default(int64(len(files)), "Ingesting")

	ingested := 0
	chunks := 0
	var failures []string
	for _, file := range files {
		content, err := fs.ReadDocument(file.Path)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", file.RelPath, err))
			bar.Add(1)
			continue
		}

		policy := chunker.SplitParagraphs
		if file.Ext() == ".md" || file.Ext() == ".markdown" {
			policy = chunker.SplitHeadings
		}

		docID := chunker.Slug(file.Stem())
		result, err := ingest.ProcessDocument(cmd.Context(), docID, filepath.Base(file.Path), content, policy, true)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", file.RelPath, err))
			bar.Add(1)
			continue
		}
		ingested++
		chunks += result.ChunkCount
		bar.Add(1)
	}
	bar.Finish()

	fmt.Printf("\nIngested %d documents (%d sections).\n", ingested, chunks)
	for _, f := range failures {
		fmt.Printf("  failed: %s\n", f)
	}
	return nil
}
