package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamusis/pyckles/index"
)

var catalogsCmd = &cobra.Command{
	Use:   "catalogs",
	Short: "List the catalogues published on the server",
	Args:  cobra.NoArgs,
	RunE:  runCatalogs,
}

var flagSaveListing string

func init() {
	catalogsCmd.Flags().StringVar(&flagSaveListing, "save", "", "Also write the listing to this file")
	rootCmd.AddCommand(catalogsCmd)
}

func runCatalogs(cmd *cobra.Command, _ []string) error {
	_, _, loader, err := newLoader()
	if err != nil {
		return err
	}
	var ix *index.Index
	if flags.noCache {
		ix, err = loader.RefreshCatalogs(cmd.Context())
	} else {
		ix, err = loader.Catalogs(cmd.Context())
	}
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), ix.Table())

	if flagSaveListing != "" {
		f, err := os.Create(flagSaveListing)
		if err != nil {
			return fmt.Errorf("cannot create %s: %w", flagSaveListing, err)
		}
		defer f.Close()
		if err := index.Write(f, ix); err != nil {
			return fmt.Errorf("cannot write %s: %w", flagSaveListing, err)
		}
		printOK("", fmt.Sprintf("Listing saved: %s", flagSaveListing))
	}
	return nil
}
