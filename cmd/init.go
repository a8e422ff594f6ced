package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamusis/pyckles/internal/config"
	"github.com/kamusis/pyckles/spectrum"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to ~/.pyckles/",
	Long: `Create ~/.pyckles/pyckles.yaml, the ~/.pyckles/.env override template and
the cache directory. Existing files are left untouched.

--cache-dir and --server given to init are written into pyckles.yaml.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var flagInitStyle string

func init() {
	initCmd.Flags().StringVar(&flagInitStyle, "style", "", "Default return style to record in pyckles.yaml")
	rootCmd.AddCommand(initCmd)
}

func runInit(_ *cobra.Command, _ []string) error {
	// ── 1. Resolve ~/.pyckles directory ───────────────────────────────────────
	dir, err := config.PycklesDir()
	if err != nil {
		return err
	}
	cfgPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	printOK("", fmt.Sprintf("pyckles directory ready: %s", dir))

	// ── 2. Write pyckles.yaml if missing ──────────────────────────────────────
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg, err := config.DefaultConfig()
		if err != nil {
			return err
		}
		if flags.cacheDir != "" {
			cfg.CacheDir = flags.cacheDir
		}
		if flags.server != "" {
			cfg.ServerURL = flags.server
		}
		if flags.index != "" {
			cfg.IndexFile = flags.index
		}
		if flagInitStyle != "" {
			st, ok := spectrum.LookupStyle(flagInitStyle)
			if !ok {
				return fmt.Errorf("invalid --style %q (expected one of %v)", flagInitStyle, spectrum.Styles)
			}
			cfg.ReturnStyle = st.String()
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		printOK("", fmt.Sprintf("Config written: %s", cfgPath))
	} else {
		printSkip("", fmt.Sprintf("Config already exists: %s", cfgPath))
	}

	// ── 3. Dotenv template ────────────────────────────────────────────────────
	envPath, err := config.DotEnvPath()
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(envPath); statErr == nil {
		printSkip("", fmt.Sprintf("Override template already exists: %s", envPath))
	} else {
		if err := config.EnsureDotEnvTemplate(); err != nil {
			return err
		}
		printOK("", fmt.Sprintf("Override template written: %s", envPath))
	}

	// ── 4. Cache directory ────────────────────────────────────────────────────
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return fmt.Errorf("cannot create cache directory %s: %w", cfg.CacheDir, err)
	}
	printOK("", fmt.Sprintf("Cache directory ready: %s", cfg.CacheDir))
	return nil
}
