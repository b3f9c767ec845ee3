package cli

import (
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"kbchat/internal/usecase"
)

var (
	queryText string
	queryTopK int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search the knowledge base",
	Long: `Run a similarity search against the indexed knowledge base and print
the matching sections with their scores.

Examples:
  kbchat query -q "how do I install"
  kbchat query -q "रीसेट कैसे करें" -k 3`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "query text (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (overrides config)")
	queryCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	deps, err := buildDeps(cfg, GetRootDir(), false)
	if err != nil {
		return err
	}
	defer deps.Close()

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	retrieve := usecase.NewRetrieveUseCase(deps.Embedder, deps.Index, topK, log.New(io.Discard, "", 0))
	results := retrieve.Search(cmd.Context(), queryText, nil)
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%d. %s (score %.4f, %s)\n", i+1, r.SectionTitle, r.Score, r.Language)
		fmt.Printf("   %s\n\n", r.Content)
	}
	return nil
}
