package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kamusis/pyckles"
	"github.com/kamusis/pyckles/spectrum"
)

var getCmd = &cobra.Command{
	Use:   "get <catalogue> <spectrum>",
	Short: "Print one spectrum",
	Long: `Print the wavelength and flux samples of one spectrum.

--style selects the representation the library returns (fits, array,
quantity, synphot); --format selects how it is printed (table or yaml).`,
	Args: cobra.ExactArgs(2),
	RunE: runGet,
}

type getFlags struct {
	style  string
	format string
}

var flagsGet getFlags

func init() {
	getCmd.Flags().StringVar(&flagsGet.style, "style", "", "Return style: fits, array, quantity or synphot (default from config)")
	getCmd.Flags().StringVarP(&flagsGet.format, "format", "o", "table", "Output format: table or yaml")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	if flagsGet.format != "table" && flagsGet.format != "yaml" {
		return fmt.Errorf("invalid --format %q (expected table or yaml)", flagsGet.format)
	}
	var opts []pyckles.Option
	if flagsGet.style != "" {
		st, ok := spectrum.LookupStyle(flagsGet.style)
		if !ok {
			return fmt.Errorf("invalid --style %q (expected one of %v)", flagsGet.style, spectrum.Styles)
		}
		opts = append(opts, pyckles.WithReturnStyle(st))
	}

	lib, err := openLibrary(cmd, args[0], opts...)
	if err != nil {
		return err
	}
	defer lib.Close()

	sp, err := lib.Get(args[1])
	if err != nil {
		return err
	}
	doc, err := docFor(args[1], sp)
	if err != nil {
		return err
	}
	if flagsGet.format == "yaml" {
		return writeYAML(cmd.OutOrStdout(), doc)
	}
	return writeTable(cmd.OutOrStdout(), doc)
}

// spectrumDoc is the printable form of every representation.
type spectrumDoc struct {
	Name           string    `yaml:"name"`
	Style          string    `yaml:"style"`
	WavelengthUnit string    `yaml:"wavelength_unit,omitempty"`
	FluxUnit       string    `yaml:"flux_unit,omitempty"`
	Wavelength     []float64 `yaml:"wavelength,flow"`
	Flux           []float64 `yaml:"flux,flow"`
}

// model is the part of a synphot-style spectrum the CLI prints.
type model interface {
	Waveset() spectrum.Quantity
	Eval(spectrum.Quantity) (spectrum.Quantity, error)
}

func docFor(name string, sp spectrum.Spectrum) (spectrumDoc, error) {
	doc := spectrumDoc{Name: name, Style: sp.Style().String()}
	switch s := sp.(type) {
	case *spectrum.Record:
		doc.WavelengthUnit, doc.FluxUnit = s.WaveUnit, s.FluxUnit
		doc.Wavelength, doc.Flux = s.Wavelength, s.Flux
	case spectrum.Arrays:
		doc.Wavelength, doc.Flux = s.Wavelength, s.Flux
	case spectrum.Quantities:
		doc.WavelengthUnit, doc.FluxUnit = s.Wavelength.Unit.Raw(), s.Flux.Unit.Raw()
		doc.Wavelength, doc.Flux = s.Wavelength.Values, s.Flux.Values
	case model:
		ws := s.Waveset()
		flux, err := s.Eval(ws)
		if err != nil {
			return spectrumDoc{}, err
		}
		doc.WavelengthUnit, doc.FluxUnit = ws.Unit.Raw(), flux.Unit.Raw()
		doc.Wavelength, doc.Flux = ws.Values, flux.Values
	default:
		return spectrumDoc{}, fmt.Errorf("cannot print %T", sp)
	}
	return doc, nil
}

func writeYAML(w io.Writer, doc spectrumDoc) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("cannot encode spectrum: %w", err)
	}
	return enc.Close()
}

func writeTable(w io.Writer, doc spectrumDoc) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "wavelength\tflux\t\n")
	if doc.WavelengthUnit != "" || doc.FluxUnit != "" {
		fmt.Fprintf(tw, "[%s]\t[%s]\t\n", doc.WavelengthUnit, doc.FluxUnit)
	}
	for i := range doc.Wavelength {
		fmt.Fprintf(tw, "%g\t%g\t\n", doc.Wavelength[i], doc.Flux[i])
	}
	return tw.Flush()
}
