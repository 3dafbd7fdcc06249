package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/engram-oss/engram/internal/memory"
	"github.com/engram-oss/engram/pkg/engram"
	"github.com/spf13/cobra"
)

var (
	recallType          string
	recallMinImportance float64
	recallLimit         int
	recallSemantic      float64
	recallRecency       float64
	recallImportance    float64
	recallOutputJSON    bool
)

var recallCmd = &cobra.Command{
	Use:   "recall <query>",
	Short: "Search stored memories",
	Long: `Run a hybrid search over stored memories.

Results are ranked by a weighted sum of semantic similarity to the query,
recency of last access, and importance. Weight flags override the
configured defaults; leave all three at zero to use them.

Examples:
  engram recall "dark mode"
  engram recall "deploy schedule" --type fact --limit 5
  engram recall "alice" --semantic 1 --recency 0 --importance 0`,
	Args: cobra.ExactArgs(1),
	RunE: runRecall,
}

func init() {
	recallCmd.Flags().StringVarP(&recallType, "type", "t", "", "restrict to a memory type")
	recallCmd.Flags().Float64Var(&recallMinImportance, "min-importance", 0, "minimum importance")
	recallCmd.Flags().IntVarP(&recallLimit, "limit", "n", 0, "maximum results (0 = configured default)")
	recallCmd.Flags().Float64Var(&recallSemantic, "semantic", 0, "semantic weight")
	recallCmd.Flags().Float64Var(&recallRecency, "recency", 0, "recency weight")
	recallCmd.Flags().Float64Var(&recallImportance, "importance", 0, "importance weight")
	recallCmd.Flags().BoolVar(&recallOutputJSON, "json", false, "output as JSON")
}

func runRecall(cmd *cobra.Command, args []string) error {
	eng, err := engram.Open(projectDir)
	if err != nil {
		return err
	}
	defer eng.Close()

	q := memory.SearchQuery{
		Query:            args[0],
		Type:             memory.Type(recallType),
		MinImportance:    recallMinImportance,
		Limit:            recallLimit,
		SemanticWeight:   recallSemantic,
		RecencyWeight:    recallRecency,
		ImportanceWeight: recallImportance,
	}
	// Weight flags left at zero fall back to the configured weights.
	if q.SemanticWeight == 0 && q.RecencyWeight == 0 && q.ImportanceWeight == 0 {
		q.SemanticWeight = eng.Config.Search.SemanticWeight
		q.RecencyWeight = eng.Config.Search.RecencyWeight
		q.ImportanceWeight = eng.Config.Search.ImportanceWeight
	}
	if q.Limit == 0 {
		q.Limit = eng.Config.Search.Limit
	}

	matches, err := eng.Memory.Search(cmd.Context(), q)
	if err != nil {
		return err
	}

	if recallOutputJSON {
		return json.NewEncoder(os.Stdout).Encode(matches)
	}

	if len(matches) == 0 {
		fmt.Println("No memories found.")
		return nil
	}

	for _, m := range matches {
		fmt.Printf("%.3f  %s  [%s]  %s\n", m.Score, m.Entry.ID[:8], m.Entry.Type, m.Entry.Content)
		if verbose {
			fmt.Printf("       importance=%.2f accessed=%s count=%d\n",
				m.Entry.Importance,
				m.Entry.AccessedAt.Format(time.RFC3339),
				m.Entry.AccessCount)
		}
	}
	return nil
}
