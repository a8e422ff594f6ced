package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamusis/pyckles"
)

var listCmd = &cobra.Command{
	Use:   "list <catalogue>",
	Short: "List the spectra of a catalogue",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

var flagListExt bool

func init() {
	listCmd.Flags().BoolVar(&flagListExt, "ext", false, "Also print the HDU index of each spectrum")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	lib, err := openLibrary(cmd, args[0])
	if err != nil {
		return err
	}
	defer lib.Close()

	rows, err := lib.Summary()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	for _, row := range rows {
		if flagListExt {
			fmt.Fprintf(w, "%-12s %d\n", row.Name, row.Ext)
		} else {
			fmt.Fprintln(w, row.Name)
		}
	}
	return nil
}

// openLibrary loads the named catalogue using the command-line configuration.
func openLibrary(cmd *cobra.Command, name string, opts ...pyckles.Option) (*pyckles.SpectralLibrary, error) {
	cfg, _, loader, err := newLoader()
	if err != nil {
		return nil, err
	}
	base := []pyckles.Option{
		pyckles.WithLoader(loader),
		pyckles.WithUseCache(cfg.UseCache),
		pyckles.WithConfig(map[string]any{pyckles.ConfigReturnStyle: cfg.ReturnStyle}),
	}
	return pyckles.New(cmd.Context(), name, append(base, opts...)...)
}
