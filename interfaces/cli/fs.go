package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"spconnect/application"
)

// fsCommand binds the provider root shared by every fs sub command.
type fsCommand struct {
	app  *App
	root string
}

// run opens a provider for the duration of fn.
func (c *fsCommand) run(cmd *cobra.Command, fn func(p *application.FileSystemProvider) error) error {
	client, release, err := c.app.client(cmd.Context())
	if err != nil {
		return err
	}
	defer release()
	return fn(application.NewFileSystemProvider(client, c.root, c.app.logger))
}

func (a *App) newFSCommand() *cobra.Command {
	c := &fsCommand{app: a}
	cmd := &cobra.Command{
		Use:   "fs",
		Short: "Work with the document library as a file system",
		Long: `Work with the document library as a file system.

Paths are relative to --root, itself relative to the document library.`,
	}
	cmd.PersistentFlags().StringVar(&c.root, "root", "", "Folder used as the file system root")

	cmd.AddCommand(
		c.statCommand(),
		c.lsCommand(),
		c.findCommand(),
		c.getCommand(),
		c.putCommand(),
		c.rmCommand(),
		c.mvCommand(),
	)
	return cmd
}

func (c *fsCommand) statCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Describe a file or folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(p *application.FileSystemProvider) error {
				stat, err := p.Stat(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if stat == nil {
					return fmt.Errorf("%s: %w", args[0], application.ErrItemNotFound)
				}
				return writeJSON(cmd.OutOrStdout(), stat)
			})
		},
	}
}

func (c *fsCommand) lsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List a folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) == 1 {
				path = args[0]
			}
			return c.run(cmd, func(p *application.FileSystemProvider) error {
				entry, err := p.Browse(cmd.Context(), path)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), entry)
			})
		},
	}
}

func (c *fsCommand) findCommand() *cobra.Command {
	var firstNonEmpty bool
	cmd := &cobra.Command{
		Use:   "find [path]",
		Short: "List every file below a folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) == 1 {
				path = args[0]
			}
			return c.run(cmd, func(p *application.FileSystemProvider) error {
				files, err := p.Enumerate(cmd.Context(), path, firstNonEmpty)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), files)
			})
		},
	}
	cmd.Flags().BoolVar(&firstNonEmpty, "first", false, "Stop at the first file found")
	return cmd
}

func (c *fsCommand) getCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Download a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(p *application.FileSystemProvider) error {
				if output == "" || output == "-" {
					return p.Read(cmd.Context(), args[0], cmd.OutOrStdout())
				}
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				if err := p.Read(cmd.Context(), args[0], f); err != nil {
					_ = f.Close()
					return err
				}
				return f.Close()
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file, - for stdout")
	return cmd
}

func (c *fsCommand) putCommand() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "put <path>",
		Short: "Upload a file, creating its folders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeInput, err := openInput(cmd, input)
			if err != nil {
				return err
			}
			defer closeInput()
			return c.run(cmd, func(p *application.FileSystemProvider) error {
				return p.Write(cmd.Context(), args[0], in)
			})
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "Input file, - for stdin")
	return cmd
}

func (c *fsCommand) rmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Recycle a file or folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(p *application.FileSystemProvider) error {
				deleted, err := p.DeleteRecursive(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if deleted == 0 {
					return errors.New(args[0] + ": nothing to delete")
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d deleted\n", deleted)
				return err
			})
		},
	}
}

func (c *fsCommand) mvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <from> <to>",
		Short: "Move a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(p *application.FileSystemProvider) error {
				_, err := p.Move(cmd.Context(), args[0], args[1])
				return err
			})
		},
	}
}
