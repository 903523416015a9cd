package cmd

import (
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/joescharf/crev/internal/mcp"
	"github.com/joescharf/crev/internal/store"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets MCP clients submit code for review and browse review history.
Configure a client with:

  {
    "mcpServers": {
      "crev": { "command": "crev", "args": ["mcp"] }
    }
  }

Available tools: crev_review_code, crev_list_reviews, crev_get_review`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals()...)
		defer stop()

		ctrl, err := newController()
		if err != nil {
			return err
		}

		// History is optional; review still works without a database.
		var s store.Store
		if st, err := getStore(); err == nil {
			s = st
			defer st.Close()
		}

		return mcp.NewServer(ctrl, s, buildVersion).ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
