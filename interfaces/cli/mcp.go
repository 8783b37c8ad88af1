package cli

import (
	"github.com/spf13/cobra"

	"spconnect/application"
	"spconnect/interfaces/agent"
)

func (a *App) newMCPCommand() *cobra.Command {
	var flags listFlags
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the list write tool to agents over MCP stdio",
		Long: `Serve the list write tool to agents over MCP stdio.

Columns of the list that carry a description become the tool inputs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, release, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			tool := application.NewWriteListTool(client, *flags.parameters(a.listDefaults()), a.logger)
			server, err := agent.NewServer(cmd.Context(), agent.ServerConfig{Version: a.version}, tool, a.logger)
			if err != nil {
				return err
			}
			return server.Run(cmd.Context())
		},
	}
	flags.register(cmd, false)
	return cmd
}
