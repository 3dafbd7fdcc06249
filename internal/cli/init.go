package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [project-name]",
	Short: "Initialize a new engram project",
	Long: `Initialize a new engram project with the standard directory
structure and a commented engram.yaml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	projectName := "."
	if len(args) > 0 {
		projectName = args[0]
	}

	// Create project directory if not current directory
	if projectName != "." {
		if err := os.MkdirAll(projectName, 0755); err != nil {
			return fmt.Errorf("failed to create project directory: %w", err)
		}
	}

	dirs := []string{
		".engram",
		".engram/logs",
	}

	for _, dir := range dirs {
		path := filepath.Join(projectName, dir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := createProjectConfig(projectName); err != nil {
		return err
	}

	if err := createGitignore(projectName); err != nil {
		return err
	}

	fmt.Printf("Initialized engram project in %s\n", projectName)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Adjust weights and paths in engram.yaml")
	fmt.Println("  2. Run 'engram remember \"something worth keeping\"'")
	fmt.Println("  3. Run 'engram recall <query>' to search")

	return nil
}

func createProjectConfig(projectDir string) error {
	content := `# engram.yaml - Project configuration
name: my-project

# SQLite databases
storage:
  memory_path: .engram/memories.db
  transcript_path: .engram/transcript.db

# Fallback encoder dimension. External providers may differ; search
# zero-pads when comparing vectors of unequal length.
embedding:
  dimension: 512

# Hybrid ranking weights (need not sum to 1)
search:
  semantic_weight: 0.5
  recency_weight: 0.2
  importance_weight: 0.3
  limit: 20

# Duplicate detection
dedup:
  threshold: 0.75

# Logging
logging:
  level: info
  format: text  # text | json
  # file: .engram/logs/engram.log

# Metrics export (JSONL, optional)
# metrics:
#   export_path: .engram/metrics.jsonl

# Lifecycle event hooks
hooks:
  enabled: false
  hooks: []
  #  - name: audit
  #    type: shell
  #    events: [memory.added, memory.deleted]
  #    command: ./scripts/audit.sh
`
	return os.WriteFile(filepath.Join(projectDir, "engram.yaml"), []byte(content), 0644)
}

func createGitignore(projectDir string) error {
	content := `.engram/
*.db
*.db-journal
`
	return os.WriteFile(filepath.Join(projectDir, ".gitignore"), []byte(content), 0644)
}
