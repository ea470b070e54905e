package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"oggopus.click/internal/catalog"
	"oggopus.click/internal/config"
	"oggopus.click/internal/engine"
	"oggopus.click/internal/engine/libopusfile"
	"oggopus.click/internal/fs"
)

const Version = "0.4.0"

// EngineFactory creates the codec engine on first use.
type EngineFactory func() (engine.Engine, error)

// CLI represents the command-line interface
type CLI struct {
	rootCmd          *cobra.Command
	fs               afero.Fs
	files            *fs.DefaultFactory
	configManager    *config.ConfigManager
	config           *config.Config
	newEngine        EngineFactory
	engine           engine.Engine
	terminalDetector TerminalDetector
	catalog          *catalog.Catalog
	catalogPath      string
	closers          []io.Closer
}

// Option configures a CLI
type Option func(*CLI)

// WithFilesystem makes every command read and write through fsys
func WithFilesystem(fsys afero.Fs) Option {
	return func(c *CLI) {
		c.fs = fsys
	}
}

// WithEngine replaces the libopusfile engine
func WithEngine(factory EngineFactory) Option {
	return func(c *CLI) {
		c.newEngine = factory
	}
}

// WithTerminalDetector replaces terminal detection
func WithTerminalDetector(d TerminalDetector) Option {
	return func(c *CLI) {
		c.terminalDetector = d
	}
}

// NewCLI creates a new CLI instance
func NewCLI(opts ...Option) *CLI {
	slog.Debug("creating new CLI instance")

	rootCmd := &cobra.Command{
		Use:   "oggopus",
		Short: "Inspect and decode Ogg Opus files",
		Long: `oggopus reads chained Ogg Opus files through libopusfile.

It prints stream and tag information, decodes to WAV, AIFF or raw PCM,
extracts embedded cover art and keeps a catalog of scanned music folders.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfigE,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("oggopus version {{.Version}}\n")

	rootCmd.AddCommand(newInfoCommand())
	rootCmd.AddCommand(newDecodeCommand())
	rootCmd.AddCommand(newPicturesCommand())
	rootCmd.AddCommand(newCatalogCommand())
	rootCmd.AddCommand(newConfigCommand())

	c := &CLI{
		rootCmd:   rootCmd,
		fs:        afero.NewOsFs(),
		newEngine: libopusfile.New,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.files = fs.NewFactory(c.fs)
	return c
}

type cliKey struct{}

// contextWithCLI stores CLI instance in context for command handlers
func contextWithCLI(cli *CLI) context.Context {
	return context.WithValue(context.Background(), cliKey{}, cli)
}

// cliFromContext extracts CLI instance from context
func cliFromContext(ctx context.Context) (*CLI, error) {
	if cli, ok := ctx.Value(cliKey{}).(*CLI); ok {
		return cli, nil
	}
	return nil, fmt.Errorf("CLI instance not found in context")
}

// loadConfigE loads configuration before any subcommand runs, applies
// environment and flag overrides and configures logging.
func loadConfigE(cmd *cobra.Command, args []string) error {
	cli, err := cliFromContext(cmd.Context())
	if err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	logLevel, _ := cmd.Flags().GetString("log-level")
	if err := cli.configManager.ApplyLogLevelWithWriter(logLevel, cmd.ErrOrStderr()); err != nil {
		return err
	}

	var cfg *config.Config
	if configFile != "" {
		cfg, err = cli.configManager.LoadFromFile(configFile)
	} else {
		cfg, err = cli.configManager.LoadConfig()
	}
	if err != nil {
		slog.Error("config load failed", "error", err)
		return fmt.Errorf("error loading config: %w", err)
	}

	cfg = cli.configManager.ApplyEnvironmentOverrides(cfg)
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := cli.configManager.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cli.config = cfg

	closer := setupLogging(cfg, cli.configManager, cmd.ErrOrStderr())
	if closer != nil {
		cli.closers = append(cli.closers, closer)
	}
	return nil
}

// Engine returns the codec engine, creating it on first use
func (c *CLI) Engine() (engine.Engine, error) {
	if c.engine != nil {
		return c.engine, nil
	}
	eng, err := c.newEngine()
	if err != nil {
		slog.Error("failed to create codec engine", "error", err)
		return nil, fmt.Errorf("failed to create codec engine: %w", err)
	}
	slog.Debug("codec engine ready", "engine", eng.Name())
	c.engine = eng
	return eng, nil
}

// requireOgg reports whether input should be sniffed before the engine
// sees it. Only engines that read real Ogg pages need it.
func (c *CLI) requireOgg(eng engine.Engine) bool {
	return eng.Name() == libopusfile.Name
}

// openCatalog opens the configured catalog database
func (c *CLI) openCatalog() (*catalog.Catalog, error) {
	if c.catalog != nil {
		return c.catalog, nil
	}
	if c.config.Catalog == nil || !c.config.Catalog.Enabled {
		return nil, fmt.Errorf("the catalog is disabled in configuration")
	}
	path := c.configManager.ResolveCatalogPath(c.config.Catalog.DatabasePath)
	cat, err := catalog.Open(path)
	if err != nil {
		slog.Error("failed to open catalog", "path", path, "error", err)
		return nil, fmt.Errorf("failed to open catalog %s: %w", path, err)
	}
	c.catalog = cat
	c.catalogPath = path
	c.closers = append(c.closers, cat)
	return cat, nil
}

// Run executes the command line in args, where args[0] is the program name
func (c *CLI) Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	slog.Debug("CLI run started", "args", args)

	if c.configManager == nil {
		c.configManager = config.NewConfigManagerWithFilesystem(c.fs)
	}

	defer func() {
		for i := len(c.closers) - 1; i >= 0; i-- {
			if err := c.closers[i].Close(); err != nil {
				slog.Error("error closing resource", "error", err)
			}
		}
		c.closers = nil
		c.catalog = nil
	}()

	c.rootCmd.SetArgs(args[1:])
	c.rootCmd.SetIn(stdin)
	c.rootCmd.SetOut(stdout)
	c.rootCmd.SetErr(stderr)
	c.rootCmd.SetContext(contextWithCLI(c))

	if err := c.rootCmd.Execute(); err != nil {
		slog.Debug("command failed", "error", err)
		return 1
	}
	return 0
}
