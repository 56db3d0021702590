package cmd

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/jumpgate/internal/app"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write a seed file into Redis and exit",
	Long: `Write services, applications, accounts, groups and sessions from a YAML
seed file into Redis. Existing documents with the same keys are replaced.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Seed(cmd.Context(), seedFile)
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "seed file (defaults to JUMPGATE_SEED_FILE)")
}
