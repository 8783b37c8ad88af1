package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"spconnect/application"
)

func (a *App) newDocsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Document library datasets",
	}

	var limit int
	metadata := &cobra.Command{
		Use:   "metadata",
		Short: "List every file of the document library as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, release, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			enc := json.NewEncoder(cmd.OutOrStdout())
			_, err = application.NewDocumentsMetadata(client, a.logger).GenerateRows(cmd.Context(), limit, func(d application.DocumentMetadata) error {
				return enc.Encode(d)
			})
			return err
		},
	}
	metadata.Flags().IntVar(&limit, "limit", 0, "Maximum number of files, 0 for all")

	cmd.AddCommand(metadata)
	return cmd
}
