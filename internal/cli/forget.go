package cli

import (
	"fmt"

	"github.com/engram-oss/engram/pkg/engram"
	"github.com/spf13/cobra"
)

var forgetTurn bool

var forgetCmd = &cobra.Command{
	Use:   "forget <id>",
	Short: "Delete a memory",
	Long: `Delete a memory by id. Deleting an unknown id is not an error.

With --turn the id is treated as a transcript turn id: the turn is
deleted and memories derived from it keep their content but lose the
source reference.

Examples:
  engram forget 7f3c9a12-...
  engram forget --turn 2b8e41d0-...`,
	Args: cobra.ExactArgs(1),
	RunE: runForget,
}

func init() {
	forgetCmd.Flags().BoolVar(&forgetTurn, "turn", false, "delete a transcript turn instead of a memory")
}

func runForget(cmd *cobra.Command, args []string) error {
	eng, err := engram.Open(projectDir)
	if err != nil {
		return err
	}
	defer eng.Close()

	if forgetTurn {
		if err := eng.DeleteTurn(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted turn %s\n", args[0])
		return nil
	}

	if err := eng.Memory.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}
