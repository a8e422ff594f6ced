package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamusis/pyckles/catalog"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <catalogue>...",
	Short: "Download catalogues into the local cache",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, _, loader, err := newLoader()
	if err != nil {
		return err
	}
	var failed int
	for _, name := range args {
		path, err := loader.Fetch(cmd.Context(), name, catalog.LoadOptions{UseCache: cfg.UseCache})
		if err != nil {
			printErr(name, err.Error())
			failed++
			continue
		}
		size := "?"
		if info, err := os.Stat(path); err == nil {
			size = humanBytes(info.Size())
		}
		printOK(name, fmt.Sprintf("%s (%s)", path, size))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d catalogue(s) could not be fetched", failed, len(args))
	}
	return nil
}
