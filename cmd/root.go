package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/kamusis/pyckles"
	"github.com/kamusis/pyckles/catalog"
	"github.com/kamusis/pyckles/internal/config"
	"github.com/kamusis/pyckles/retrieve"
)

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	cacheDir string
	server   string
	index    string
	noCache  bool
	verbose  bool
}

var flags globalFlags

var rootCmd = &cobra.Command{
	Use:          "pyckles",
	Short:        "pyckles — stellar spectral library client",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `pyckles downloads catalogues of stellar spectra (by default the Pickles 1998
library) into a local cache at ~/.pyckles/cache/ and prints individual spectra.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		setupLogging(flags.verbose)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.cacheDir, "cache-dir", "", "Cache directory (overrides "+config.EnvCacheDir+")")
	pf.StringVar(&flags.server, "server", "", "Server base URL (overrides "+config.EnvServerURL+")")
	pf.StringVar(&flags.index, "index", "", "Catalogue listing on the server, or an absolute local path (overrides "+config.EnvIndexFile+")")
	pf.BoolVar(&flags.noCache, "no-cache", false, "Ignore cached files and download again")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose output")
}

// setupLogging installs a charm log handler as the slog default, wrapped so
// attributes stored in a context reach every record.
func setupLogging(verbose bool) {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "pyckles",
		Level:           level,
		ReportTimestamp: verbose,
		TimeFormat:      time.TimeOnly,
	})
	slog.SetDefault(slog.New(slogcontext.NewHandler(logger, nil)))
}

// resolveConfig returns the effective configuration: pyckles.yaml, then
// environment and ~/.pyckles/.env, then command-line flags.
func resolveConfig() (*config.Config, error) {
	cfg, err := config.Resolve()
	if err != nil {
		return nil, fmt.Errorf("cannot load config: %w", err)
	}
	if flags.cacheDir != "" {
		if cfg.CacheDir, err = config.ExpandPath(flags.cacheDir); err != nil {
			return nil, err
		}
	}
	if flags.server != "" {
		cfg.ServerURL = flags.server
	}
	if flags.index != "" {
		if cfg.IndexFile, err = config.ExpandPath(flags.index); err != nil {
			return nil, err
		}
	}
	if flags.noCache {
		cfg.UseCache = false
	}
	return cfg, nil
}

func newRetriever(cfg *config.Config) (*retrieve.Retriever, error) {
	return retrieve.New(
		retrieve.WithBaseURL(cfg.ServerURL),
		retrieve.WithCacheDir(cfg.CacheDir),
		retrieve.WithAttempts(cfg.Attempts),
		retrieve.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		retrieve.WithUserAgent("pyckles/"+version),
	)
}

// newLoader builds the retriever and loader for a command invocation.
func newLoader() (*config.Config, *retrieve.Retriever, *catalog.Loader, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	ret, err := newRetriever(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, ret, newLoaderFor(ret, cfg), nil
}

func newLoaderFor(ret *retrieve.Retriever, cfg *config.Config) *catalog.Loader {
	return pyckles.NewLoader(ret, cfg.IndexFile)
}

// Execute is called by main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
