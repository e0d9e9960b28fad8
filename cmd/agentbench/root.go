package main

import (
	"github.com/spf13/cobra"

	"github.com/gptbots-qa/agent-tester/common"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "agentbench",
		Short: "Batch-test GPTBots agents from a spreadsheet",
		Long: `agentbench sends every question of an xlsx or csv sheet to a GPTBots agent,
sequentially or in parallel batches, and writes Excel, Markdown and JSON reports.`,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(common.Version)
		},
	})
	return root
}
