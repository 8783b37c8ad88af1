package cli

import (
	"github.com/spf13/cobra"

	"spconnect/application"
	"spconnect/infrastructure/factories"
)

// withTriggers opens the state store and a client for the duration of fn.
func (a *App) withTriggers(cmd *cobra.Command, fn func(s *application.TriggerService) error) error {
	db, err := a.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	client, release, err := a.client(cmd.Context())
	if err != nil {
		return err
	}
	defer release()

	return fn(application.NewTriggerService(client, factories.NewTriggerStateRepository(db), a.logger))
}

func (a *App) newTriggerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Check files, folders and lists for modifications",
		Long: `Check files, folders and lists for modifications.

A check fires when nothing is stored for the item yet or when the item was
modified after the last fire. The result is printed as JSON.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "file <path>",
			Short: "Check a file or folder of the document library",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withTriggers(cmd, func(s *application.TriggerService) error {
					result, err := s.CheckFile(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), result)
				})
			},
		},
		&cobra.Command{
			Use:   "list <title>",
			Short: "Check a list",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withTriggers(cmd, func(s *application.TriggerService) error {
					result, err := s.CheckList(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), result)
				})
			},
		},
		&cobra.Command{
			Use:   "reset <key>",
			Short: "Forget the stored state so the next check fires",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := a.openDatabase()
				if err != nil {
					return err
				}
				defer db.Close()
				// no SharePoint access needed to forget a state
				states := application.NewTriggerService(nil, factories.NewTriggerStateRepository(db), a.logger)
				return states.Reset(cmd.Context(), args[0])
			},
		},
	)
	return cmd
}
