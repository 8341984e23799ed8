// Package cli provides the command-line interface for achillesduck.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/achillesduck/internal/cli/commands"
	"github.com/leapstack-labs/achillesduck/internal/cli/config"
	"github.com/leapstack-labs/achillesduck/internal/cli/output"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	cfg       *config.Config
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// configKey is used to store config in context.
type configKey struct{}

// rendererKey is used to store renderer in context.
type rendererKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "achillesduck",
		Short: "achillesduck - Achilles characterization on DuckDB",
		Long: `achillesduck runs the Achilles data characterization analyses against a
results database.

Every analysis script in the catalog is rewritten from SQL Server syntax,
executed in catalog order, and the per-analysis results are merged into the
results tables. The first failure aborts the run.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			logger, err := config.NewLogger(cmd.ErrOrStderr(), logLevel, logFormat)
			if err != nil {
				return err
			}

			cfg, err = config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)

			mode := output.Mode(cfg.OutputFormat)
			renderer := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
			ctx = context.WithValue(ctx, rendererKey{}, renderer)
			cmd.SetContext(ctx)

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", configFile)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Using target: %s %s\n", cfg.Target.Type, cfg.Target.Database)
			}
			logger.Debug("configuration loaded", slogAttrs(cfg)...)

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Achilles characterization built with Go and DuckDB
`)

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./achillesduck.yaml)")
	pf.String("database-name", "", "Results database name (default: $DATABASE_NAME)")
	pf.String("data-dir", "", "Directory holding results databases")
	pf.String("catalog", "", "Path to the analysis catalog CSV")
	pf.String("sql-dir", "", "Directory containing analyses/<id>.sql")
	pf.String("merge-script", "", "Path to the merge script")
	pf.String("state", "", "Path to the run history database (empty string disables history)")
	pf.String("memory-limit", "", "DuckDB memory budget applied before the run")
	pf.String("target-type", "", "Target engine (duckdb|postgres)")
	pf.String("database", "", "Target database file or name (overrides <data-dir>/<database-name>)")
	pf.String("storage", "", "Script storage driver (fs|s3)")
	pf.String("pushgateway-url", "", "Prometheus Pushgateway URL for run metrics")
	pf.Bool("cleanup-on-failure", false, "Drop the scratch schema when a run aborts")
	pf.Bool("strict-parse", false, "Validate every script with the T-SQL parser")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.StringP("output", "o", "", "Output format (auto|text|markdown|json)")
	pf.StringVar(&logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")
	pf.StringVar(&logFormat, "log-format", "text", "Log format (text|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.ValidModes, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("target-type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"duckdb", "postgres"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("storage", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"fs", "s3"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewListCommand())
	rootCmd.AddCommand(commands.NewRenderCommand())
	rootCmd.AddCommand(commands.NewRunsCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context, which aborts a pipeline run between statements.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	// Return default config if none in context
	return &config.Config{
		DataDir:      config.DefaultDataDir,
		OutputFormat: config.DefaultOutput,
	}
}

// GetRenderer retrieves the renderer from the command context.
func GetRenderer(ctx context.Context) *output.Renderer {
	if r, ok := ctx.Value(rendererKey{}).(*output.Renderer); ok {
		return r
	}
	// Return default renderer if none in context
	return output.NewRenderer(os.Stdout, os.Stderr, output.ModeAuto)
}

func slogAttrs(c *config.Config) []any {
	return []any{
		"database", c.DatabaseName,
		"target", c.Target.Type,
		"catalog", c.CatalogPath,
		"sql_dir", c.SQLDir,
		"storage", c.Storage.Driver,
		"state", c.StatePath,
	}
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for achillesduck.

To load completions:

Bash:
  $ source <(achillesduck completion bash)

Zsh:
  $ achillesduck completion zsh > "${fpath[1]}/_achillesduck"

Fish:
  $ achillesduck completion fish | source

PowerShell:
  PS> achillesduck completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
