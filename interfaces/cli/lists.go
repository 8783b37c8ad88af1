package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"spconnect/application"
	"spconnect/domain/lists"
)

// listFlags are the list parameters settable per command.
type listFlags struct {
	title    string
	view     string
	metadata []string
	mode     string
	workers  int
	batch    int
	pageSize int
}

func (f *listFlags) register(cmd *cobra.Command, write bool) {
	cmd.Flags().StringVarP(&f.title, "list", "l", "", "List title")
	cmd.Flags().StringVar(&f.view, "view", "", "View title")
	cmd.Flags().StringSliceVar(&f.metadata, "metadata", nil, "Extra metadata columns to retrieve")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "Items per read page")
	if write {
		cmd.Flags().IntVar(&f.workers, "workers", 0, "Concurrent batch requests")
		cmd.Flags().IntVar(&f.batch, "batch-size", 0, "Items per batch request")
	}
	_ = cmd.MarkFlagRequired("list")
}

// parameters overlays the flags on the configured defaults. Setting workers or
// batch size turns on the advanced parameters.
func (f *listFlags) parameters(defaults lists.Parameters) *lists.Parameters {
	params := defaults
	params.ListTitle = f.title
	if f.view != "" {
		params.ViewTitle = f.view
	}
	if len(f.metadata) > 0 {
		params.MetadataToRetrieve = append(params.MetadataToRetrieve, f.metadata...)
	}
	if f.mode != "" {
		params.WriteMode = f.mode
	}
	if f.pageSize > 0 {
		params.PageSize = f.pageSize
	}
	if f.workers > 0 || f.batch > 0 {
		params.AdvancedParameters = true
		if f.workers > 0 {
			params.MaxWorkers = f.workers
		}
		if f.batch > 0 {
			params.BatchSize = f.batch
		}
	}
	return &params
}

func (a *App) newListsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lists",
		Short: "Read and write SharePoint lists",
		Long: `Read and write SharePoint lists.

Subcommands:
  schema - Print the columns of a list
  read   - Export list items as CSV or JSON lines
  write  - Create or fill a list from CSV or JSON lines
  append - Append rows to an existing list and echo them`,
	}
	cmd.AddCommand(a.newListsSchemaCommand(), a.newListsReadCommand(), a.newListsWriteCommand(), a.newListsAppendCommand())
	return cmd
}

func (a *App) newListsSchemaCommand() *cobra.Command {
	var flags listFlags
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the columns of a list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, release, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			connector, err := application.NewListConnector(client, flags.parameters(a.listDefaults()), a.logger)
			if err != nil {
				return err
			}
			s, err := connector.ReadSchema(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), s)
		},
	}
	flags.register(cmd, false)
	return cmd
}

func (a *App) newListsReadCommand() *cobra.Command {
	var (
		flags  listFlags
		limit  int
		format string
	)
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Export list items",
		Long: `Export list items keyed by column display name.

With --limit, paging stops after the page that reaches the limit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, release, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			connector, err := application.NewListConnector(client, flags.parameters(a.listDefaults()), a.logger)
			if err != nil {
				return err
			}
			sink, err := application.NewRowSink(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			s, err := connector.ReadSchema(cmd.Context())
			if err != nil {
				return err
			}
			if err := sink.WriteSchema(s); err != nil {
				return err
			}
			if _, err := connector.GenerateRows(cmd.Context(), limit, sink.WriteRow); err != nil {
				return err
			}
			return sink.Close()
		},
	}
	flags.register(cmd, false)
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of records, 0 for all")
	cmd.Flags().StringVarP(&format, "format", "f", application.FormatJSONL, "Output format: csv or jsonl")
	return cmd
}

func (a *App) newListsWriteCommand() *cobra.Command {
	var (
		flags  listFlags
		input  string
		format string
	)
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write rows to a list",
		Long: `Write rows to a list.

In create mode the list is recycled and recreated with one column per input
column. In append mode rows are added to the existing list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeInput, err := openInput(cmd, input)
			if err != nil {
				return err
			}
			defer closeInput()
			source, err := application.NewRowSource(format, in)
			if err != nil {
				return err
			}

			client, release, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			connector, err := application.NewListConnector(client, flags.parameters(a.listDefaults()), a.logger)
			if err != nil {
				return err
			}
			writer, err := connector.Writer(cmd.Context(), source.Schema())
			if err != nil {
				return err
			}
			for {
				row, err := source.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return err
				}
				if err := writer.WriteRowDict(cmd.Context(), row); err != nil {
					return err
				}
			}
			if err := writer.Close(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d rows written to %s\n", writer.Written(), flags.title)
			return err
		},
	}
	flags.register(cmd, true)
	cmd.Flags().StringVar(&flags.mode, "mode", "", "Write mode: create or append")
	cmd.Flags().StringVarP(&input, "input", "i", "-", "Input file, - for stdin")
	cmd.Flags().StringVarP(&format, "format", "f", application.FormatCSV, "Input format: csv or jsonl")
	return cmd
}

func (a *App) newListsAppendCommand() *cobra.Command {
	var (
		flags  listFlags
		input  string
		format string
	)
	cmd := &cobra.Command{
		Use:   "append",
		Short: "Append rows to a list and echo them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeInput, err := openInput(cmd, input)
			if err != nil {
				return err
			}
			defer closeInput()
			source, err := application.NewRowSource(format, in)
			if err != nil {
				return err
			}
			sink, err := application.NewRowSink(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			client, release, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			recipe := application.NewAppendListRecipe(client, *flags.parameters(a.listDefaults()), a.logger)
			_, err = recipe.Run(cmd.Context(), source, sink)
			return err
		},
	}
	flags.register(cmd, true)
	cmd.Flags().StringVarP(&input, "input", "i", "-", "Input file, - for stdin")
	cmd.Flags().StringVarP(&format, "format", "f", application.FormatCSV, "Input and output format: csv or jsonl")
	return cmd
}

// openInput opens path, or the command input for "-".
func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
