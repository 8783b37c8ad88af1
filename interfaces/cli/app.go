// Package cli implements the spconnect command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"spconnect/database"
	"spconnect/domain/lists"
	"spconnect/infrastructure/config"
	"spconnect/infrastructure/factories"
	"spconnect/infrastructure/spclient"
	"spconnect/logging"
)

// ClientFunc returns a SharePoint client and a func releasing it.
type ClientFunc func(ctx context.Context) (spclient.SharePointClient, func(), error)

// App carries the configuration and collaborators shared by all commands.
type App struct {
	configPath string
	verbose    bool
	version    string

	cfg      *config.AppConfig
	logger   *logging.Logger
	registry *prometheus.Registry
	factory  *factories.ClientFactory
	client   ClientFunc
}

// Option configures an App.
type Option func(*App)

// WithConfig uses cfg instead of loading the environment and config file.
func WithConfig(cfg *config.AppConfig) Option {
	return func(a *App) { a.cfg = cfg }
}

// WithLogger sets the logger instead of building one from the config.
func WithLogger(logger *logging.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithClient makes every command use client.
func WithClient(client spclient.SharePointClient) Option {
	return func(a *App) {
		a.client = func(context.Context) (spclient.SharePointClient, func(), error) {
			return client, func() {}, nil
		}
	}
}

// NewApp creates the command line application.
func NewApp(version string, opts ...Option) *App {
	a := &App{version: version}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewRootCommand creates the root command with every sub command attached.
func (a *App) NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spconnect",
		Short: "SharePoint Online connector",
		Long: `spconnect reads and writes SharePoint Online lists and document libraries.

Credentials come from SP_* environment variables or a .env file.
Run 'spconnect serve' for the HTTP gateway or 'spconnect mcp' for the agent tool.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		a.newListsCommand(),
		a.newDocsCommand(),
		a.newFSCommand(),
		a.newTriggerCommand(),
		a.newSitesCommand(),
		a.newServeCommand(),
		a.newMCPCommand(),
		a.newVersionCommand(),
	)
	return cmd
}

// setup loads the configuration and logging once per process.
func (a *App) setup(cmd *cobra.Command, args []string) error {
	if a.cfg == nil {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if a.cfg.Logging == nil {
		a.cfg.Logging = logging.DefaultConfig()
	}
	if a.verbose {
		a.cfg.Logging.Level = "debug"
	}
	if a.logger == nil {
		a.logger = logging.NewLogger(a.cfg.Logging)
	}
	logging.SetDefault(a.logger)

	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	if a.client == nil {
		a.factory = factories.NewClientFactory(a.cfg, a.registry, a.logger)
		a.client = func(ctx context.Context) (spclient.SharePointClient, func(), error) {
			client, sess, err := a.factory.NewClient(ctx)
			if err != nil {
				return nil, nil, err
			}
			return client, sess.Close, nil
		}
	}
	return nil
}

// openDatabase opens the trigger state store.
func (a *App) openDatabase() (*database.Database, error) {
	db, err := database.New(a.cfg.Database, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	return db, nil
}

// listDefaults returns a copy of the configured list parameters.
func (a *App) listDefaults() lists.Parameters {
	if a.cfg.Lists == nil {
		return *lists.DefaultParameters()
	}
	params := *a.cfg.Lists
	params.MetadataToRetrieve = append([]string(nil), a.cfg.Lists.MetadataToRetrieve...)
	return params
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "spconnect %s\n", a.version)
			return err
		},
	}
}

func (a *App) newSitesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List the site collections visible to the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, release, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			sites, err := client.AvailableSitePaths(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), sites)
		},
	}
}
