package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/engram-oss/engram/internal/memory"
	"github.com/engram-oss/engram/pkg/engram"
	"github.com/spf13/cobra"
)

var (
	rememberType       string
	rememberImportance float64
	rememberTurn       string
	rememberMeta       []string
	rememberNoDedup    bool
	rememberOutputJSON bool
)

var rememberCmd = &cobra.Command{
	Use:   "remember <content>",
	Short: "Store a memory",
	Long: `Store a piece of long-term memory.

By default a near-duplicate of an existing memory is not stored again;
the existing entry is printed instead. Use --no-dedup to force insertion.

Examples:
  engram remember "the user prefers dark mode" --type preference
  engram remember "deploy runs at 02:00 UTC" --type fact --importance 0.8
  engram remember "met Alice from platform team" --type entity --meta team=platform`,
	Args: cobra.ExactArgs(1),
	RunE: runRemember,
}

func init() {
	rememberCmd.Flags().StringVarP(&rememberType, "type", "t", "fact", "memory type (fact, preference, entity, episodic)")
	rememberCmd.Flags().Float64VarP(&rememberImportance, "importance", "i", 0.5, "importance in [0,1]")
	rememberCmd.Flags().StringVar(&rememberTurn, "turn", "", "source transcript turn id")
	rememberCmd.Flags().StringArrayVarP(&rememberMeta, "meta", "m", nil, "metadata as key=value (repeatable)")
	rememberCmd.Flags().BoolVar(&rememberNoDedup, "no-dedup", false, "store even if a near-duplicate exists")
	rememberCmd.Flags().BoolVar(&rememberOutputJSON, "json", false, "output as JSON")
}

func runRemember(cmd *cobra.Command, args []string) error {
	eng, err := engram.Open(projectDir)
	if err != nil {
		return err
	}
	defer eng.Close()

	metadata, err := parseMetadata(rememberMeta)
	if err != nil {
		return err
	}

	draft := memory.Draft{
		Type:         memory.Type(rememberType),
		Content:      args[0],
		SourceTurnID: rememberTurn,
		Importance:   rememberImportance,
		Metadata:     metadata,
	}

	ctx := cmd.Context()

	var entry *memory.Entry
	created := true
	if rememberNoDedup {
		entry, err = eng.Memory.Add(ctx, draft)
	} else {
		entry, created, err = eng.Remember(ctx, draft)
	}
	if err != nil {
		return err
	}

	if rememberOutputJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"created": created,
			"entry":   entry,
		})
	}

	if created {
		fmt.Printf("Stored %s (%s)\n", entry.ID, entry.Type)
	} else {
		fmt.Printf("Duplicate of %s (%s), not stored\n", entry.ID, entry.Type)
	}
	return nil
}

func parseMetadata(pairs []string) (map[string]interface{}, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	metadata := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata %q (expected key=value)", pair)
		}
		metadata[key] = value
	}
	return metadata, nil
}
