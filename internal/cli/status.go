package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/engram-oss/engram/pkg/engram"
	"github.com/spf13/cobra"
)

var statusOutputJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store status",
	Long: `Display counts and health information for the memory store.

Examples:
  engram status
  engram status --json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusOutputJSON, "json", false, "output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	eng, err := engram.Open(projectDir)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx := cmd.Context()

	count, err := eng.Memory.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count memories: %w", err)
	}

	dim := eng.Memory.Embedder().Dimension()
	mismatched, err := eng.Memory.CountMismatchedDimension(ctx, dim)
	if err != nil {
		return fmt.Errorf("failed to check embedding dimensions: %w", err)
	}

	sessions, err := eng.Transcript.RecentSessions(ctx, 5)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if statusOutputJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"memories":             count,
			"embedding_dimension":  dim,
			"mismatched_embedding": mismatched,
			"provider_configured":  eng.Memory.Embedder().HasProvider(),
			"recent_sessions":      sessions,
			"metrics":              eng.Metrics.GetSummary(),
		})
	}

	fmt.Println("Store:")
	fmt.Println("------")
	fmt.Printf("Memories:   %d\n", count)
	fmt.Printf("Memory DB:  %s\n", eng.Config.Storage.MemoryPath)
	fmt.Printf("Transcript: %s\n", eng.Config.Storage.TranscriptPath)

	fmt.Println("\nEmbedding:")
	fmt.Println("----------")
	fmt.Printf("Dimension:  %d\n", dim)
	if eng.Memory.Embedder().HasProvider() {
		fmt.Println("Provider:   external")
	} else {
		fmt.Println("Provider:   fallback encoder")
	}
	if mismatched > 0 {
		fmt.Printf("Mismatched: %d memories embedded at a different dimension\n", mismatched)
	}

	if len(sessions) > 0 {
		fmt.Println("\nRecent Sessions:")
		fmt.Println("----------------")
		for _, s := range sessions {
			state := "open"
			if !s.Open() {
				state = "ended " + s.EndedAt.Format(time.RFC3339)
			}
			fmt.Printf("%s  %s  %s (%s)\n", s.ID[:8], s.Channel, s.StartedAt.Format(time.RFC3339), state)
		}
	}

	return nil
}
