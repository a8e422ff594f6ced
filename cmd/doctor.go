package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kamusis/pyckles/internal/config"
	"github.com/kamusis/pyckles/spectrum"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run pre-flight environment checks",
	Long: `Check that the configuration is valid, the cache directory is writable and
the catalogue server answers. Run this command when something seems wrong,
or before filing a bug report.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	allOK := true
	failD := func(format string, args ...any) {
		printErr("", fmt.Sprintf(format, args...))
		allOK = false
	}

	printSection("pyckles doctor")
	fmt.Println()

	// ── Check 1: pyckles.yaml ─────────────────────────────────────────────────
	fmt.Println("[ pyckles.yaml ]")
	cfgPath, err := config.ConfigPath()
	if err != nil {
		failD("cannot determine home directory: %v", err)
	} else if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		printSkip("", fmt.Sprintf("%s not found — using defaults (run 'pyckles init' to create it)", cfgPath))
	} else {
		printOK("", fmt.Sprintf("found: %s", cfgPath))
	}
	cfg, loadErr := resolveConfig()
	if loadErr != nil {
		failD("%v", loadErr)
	} else {
		if _, ok := spectrum.LookupStyle(cfg.ReturnStyle); !ok {
			printWarn("", fmt.Sprintf("unknown return_style %q — fits will be used", cfg.ReturnStyle))
		}
		printInfo("", fmt.Sprintf("server: %s", cfg.ServerURL))
	}
	fmt.Println()

	// ── Check 2: cache directory is writable ──────────────────────────────────
	fmt.Println("[ Cache directory ]")
	if loadErr == nil {
		if err := probeWritable(cfg.CacheDir); err != nil {
			failD("cache directory not writable: %v", err)
		} else {
			printOK("", fmt.Sprintf("writable: %s", cfg.CacheDir))
		}
	} else {
		printWarn("", "skipped (config not loaded)")
	}
	fmt.Println()

	// ── Check 3: server answers with a valid listing ──────────────────────────
	fmt.Println("[ Server ]")
	if loadErr == nil {
		ret, err := newRetriever(cfg)
		if err != nil {
			failD("%v", err)
		} else {
			loader := newLoaderFor(ret, cfg)
			ix, err := loader.RefreshCatalogs(cmd.Context())
			if err != nil {
				failD("cannot fetch %s: %v", ret.URL(cfg.IndexFile), err)
			} else {
				printOK("", fmt.Sprintf("%s lists %d catalogue(s)", cfg.IndexFile, ix.Len()))
				for _, e := range ix.Entries() {
					if _, cached, _ := ret.CachedPath(e.Filename); cached {
						printOK(e.Name, "cached")
					} else {
						printMiss(e.Name, "not cached")
					}
				}
			}
		}
	} else {
		printWarn("", "skipped (config not loaded)")
	}
	fmt.Println()

	// ── Check 4: optional synphot model ───────────────────────────────────────
	fmt.Println("[ Synphot model ]")
	if spectrum.ModelAvailable() {
		printOK("", "available")
	} else {
		printSkip("", "not linked — the synphot return style will fail")
	}
	fmt.Println()

	// ── Summary ───────────────────────────────────────────────────────────────
	fmt.Println("===================")
	if allOK {
		fmt.Println("✓  All checks passed. pyckles is ready to use.")
	} else {
		fmt.Fprintln(os.Stderr, "✗  One or more checks failed. See details above.")
		return fmt.Errorf("doctor found issues")
	}
	return nil
}

// probeWritable creates dir if needed and writes and removes a probe file.
func probeWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".pyckles-probe-tmp")
	if err := os.WriteFile(probe, []byte(""), 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}
