package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/interviewlab/sentinel/config"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List the interview topic catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := config.LoadCatalog(cfg.Paths.Topics)
		if err != nil {
			return err
		}
		for _, t := range catalog.Topics {
			line := fmt.Sprintf("%-16s %s", t.ID, t.Name)
			if len(t.Difficulties) > 0 {
				line += fmt.Sprintf(" (%s)", strings.Join(t.Difficulties, ", "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(topicsCmd)
}
