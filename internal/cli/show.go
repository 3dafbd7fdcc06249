package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/engram-oss/engram/pkg/engram"
	"github.com/spf13/cobra"
)

var showOutputJSON bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a memory by id",
	Long: `Fetch a single memory by id and print it.

Fetching counts as an access: the memory's last-access time and access
count are updated before it is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showOutputJSON, "json", false, "output as JSON")
}

func runShow(cmd *cobra.Command, args []string) error {
	eng, err := engram.Open(projectDir)
	if err != nil {
		return err
	}
	defer eng.Close()

	entry, err := eng.Memory.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if showOutputJSON {
		return json.NewEncoder(os.Stdout).Encode(entry)
	}

	fmt.Printf("ID:          %s\n", entry.ID)
	fmt.Printf("Type:        %s\n", entry.Type)
	fmt.Printf("Content:     %s\n", entry.Content)
	fmt.Printf("Importance:  %.2f\n", entry.Importance)
	if entry.SourceTurnID != "" {
		fmt.Printf("Source turn: %s\n", entry.SourceTurnID)
	}
	fmt.Printf("Created:     %s\n", entry.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Accessed:    %s (%d times)\n", entry.AccessedAt.Format(time.RFC3339), entry.AccessCount)
	if len(entry.Embedding) > 0 {
		fmt.Printf("Embedding:   %d dimensions\n", len(entry.Embedding))
	}
	if len(entry.Metadata) > 0 {
		fmt.Println("Metadata:")
		keys := make([]string, 0, len(entry.Metadata))
		for k := range entry.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s: %v\n", k, entry.Metadata[k])
		}
	}
	return nil
}
