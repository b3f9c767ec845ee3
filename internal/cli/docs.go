package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"kbchat/internal/usecase"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage indexed documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	RunE:  runDocsList,
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Delete a document and its indexed sections",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsDelete,
}

func init() {
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsDeleteCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsList(cmd *cobra.Command, args []string) error {
	deps, err := buildDeps(GetConfig(), GetRootDir(), false)
	if err != nil {
		return err
	}
	defer deps.Close()

	docs, err := deps.Docs.List()
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No documents indexed.")
		return nil
	}

	for _, d := range docs {
		fmt.Printf("%-24s %-32s %-4s %3d sections  updated %s\n",
			d.ID, d.Title, d.Language, d.ChunkCount, d.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	deps, err := buildDeps(cfg, GetRootDir(), false)
	if err != nil {
		return err
	}
	defer deps.Close()

	ingest := usecase.NewIngestUseCase(
		cfg.Ingest.MaxChunkSize,
		deps.Embedder,
		deps.Index,
		deps.Docs,
		log.New(os.Stderr, "[INGEST] ", log.LstdFlags),
	)

	deleted, err := ingest.DeleteDocument(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %s (%d sections).\n", args[0], deleted)
	return nil
}
