package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/kamusis/pyckles/internal/testutil"
	"github.com/kamusis/pyckles/spectrum"
	"github.com/kamusis/pyckles/units"
)

// setupOrigin serves the fixture catalogue and points the CLI at it through
// the environment, with HOME in a temp dir.
func setupOrigin(t *testing.T) (*testutil.Origin, string) {
	t.Helper()
	o := testutil.NewOrigin(t)
	o.Put("pickles98_full.fits", testutil.CatalogBytes(t, testutil.PicklesSpectra()))
	o.Put("index.dat", testutil.Listing([3]string{"Pickles", "pickles98_full.fits", ""}))

	home := t.TempDir()
	cache := filepath.Join(home, "cache")
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("PYCKLES_SERVER_URL", o.BaseURL())
	t.Setenv("PYCKLES_CACHE_DIR", cache)
	return o, cache
}

// execute runs the root command with args and returns what it wrote to its
// output stream.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	flags = globalFlags{}
	flagsGet = getFlags{format: "table"}
	flagListExt = false
	flagSaveListing = ""
	flagInitStyle = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestHumanBytes(t *testing.T) {
	cases := map[int64]string{
		0:         "0 B",
		1023:      "1023 B",
		1024:      "1.0 KiB",
		1536:      "1.5 KiB",
		5 << 20:   "5.0 MiB",
		3 << 30:   "3.0 GiB",
		1<<40 + 1: "1.0 TiB",
	}
	for in, want := range cases {
		if got := humanBytes(in); got != want {
			t.Fatalf("humanBytes(%d)=%q want %q", in, got, want)
		}
	}
}

func TestDocFor(t *testing.T) {
	rec := &spectrum.Record{
		Name:       "A0V",
		Wavelength: []float64{1, 2},
		Flux:       []float64{3, 4},
		WaveUnit:   "Angstrom",
		FluxUnit:   "erg s-1 angstrom-1 cm-2",
	}

	doc, err := docFor("A0V", rec)
	if err != nil {
		t.Fatalf("docFor(record): %v", err)
	}
	if doc.Style != "fits" || doc.FluxUnit != rec.FluxUnit {
		t.Fatalf("unexpected record doc: %+v", doc)
	}

	doc, err = docFor("A0V", spectrum.Arrays{Wavelength: rec.Wavelength, Flux: rec.Flux})
	if err != nil {
		t.Fatalf("docFor(arrays): %v", err)
	}
	if doc.WavelengthUnit != "" || len(doc.Flux) != 2 {
		t.Fatalf("unexpected arrays doc: %+v", doc)
	}

	q := spectrum.Quantities{
		Wavelength: spectrum.Quantity{Values: rec.Wavelength, Unit: units.MustParse("nm")},
		Flux:       spectrum.Quantity{Values: rec.Flux, Unit: units.MustParse("Jy")},
	}
	doc, err = docFor("A0V", q)
	if err != nil {
		t.Fatalf("docFor(quantities): %v", err)
	}
	if doc.WavelengthUnit != "nm" || doc.FluxUnit != "Jy" {
		t.Fatalf("unexpected quantities doc: %+v", doc)
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	in := spectrumDoc{Name: "A0V", Style: "array", Wavelength: []float64{1, 2}, Flux: []float64{3, 4}}
	if err := writeYAML(&buf, in); err != nil {
		t.Fatalf("writeYAML: %v", err)
	}
	var out spectrumDoc
	if err := yaml.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, buf.String())
	}
	if out.Name != "A0V" || len(out.Flux) != 2 || out.Flux[1] != 4 {
		t.Fatalf("unexpected YAML round trip: %+v", out)
	}
}

func TestCatalogsAndList(t *testing.T) {
	o, _ := setupOrigin(t)

	out, err := execute(t, "catalogs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	if !strings.Contains(out, "Pickles") || !strings.Contains(out, "pickles98_full.fits") {
		t.Fatalf("catalogs output missing entry:\n%s", out)
	}

	out, err = execute(t, "list", "PICKLES")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := strings.Fields(out); strings.Join(got, ",") != "A0V,G2V,M25V" {
		t.Fatalf("list output = %q", out)
	}
	if o.Hits("pickles98_full.fits") != 1 {
		t.Fatalf("expected one catalogue download, got %d", o.Hits("pickles98_full.fits"))
	}
}

func TestGetCommand(t *testing.T) {
	setupOrigin(t)

	out, err := execute(t, "get", "pickles", "A0V", "--style", "quantity")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.Contains(out, "[erg s-1 angstrom-1 cm-2]") {
		t.Fatalf("get output missing flux unit:\n%s", out)
	}
	if lines := strings.Count(out, "\n"); lines != 2+6 {
		t.Fatalf("expected header, unit row and 6 samples, got %d lines:\n%s", lines, out)
	}

	out, err = execute(t, "get", "pickles", "M25V", "-o", "yaml", "--style", "array")
	if err != nil {
		t.Fatalf("get yaml: %v", err)
	}
	var doc spectrumDoc
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("get yaml output: %v\n%s", err, out)
	}
	if doc.Style != "array" || len(doc.Wavelength) != 6 {
		t.Fatalf("unexpected doc: %+v", doc)
	}

	if _, err := execute(t, "get", "pickles", "Z9Z"); err == nil {
		t.Fatalf("expected error for unknown spectrum")
	}
	if _, err := execute(t, "get", "pickles", "A0V", "--style", "table"); err == nil {
		t.Fatalf("expected error for unknown style")
	}
}

func TestFetchAndCache(t *testing.T) {
	o, cache := setupOrigin(t)

	if _, err := execute(t, "fetch", "pickles"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cache, "pickles98_full.fits")); err != nil {
		t.Fatalf("catalogue not cached: %v", err)
	}

	out, err := execute(t, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if strings.TrimSpace(out) != cache {
		t.Fatalf("cache path = %q want %q", out, cache)
	}

	out, err = execute(t, "cache", "ls")
	if err != nil {
		t.Fatalf("cache ls: %v", err)
	}
	if !strings.Contains(out, "pickles98_full.fits") || !strings.Contains(out, "index.dat") {
		t.Fatalf("cache ls output:\n%s", out)
	}

	if _, err := execute(t, "--no-cache", "fetch", "pickles"); err != nil {
		t.Fatalf("fetch --no-cache: %v", err)
	}
	if got := o.Hits("pickles98_full.fits"); got != 2 {
		t.Fatalf("expected a second download with --no-cache, got %d", got)
	}

	if _, err := execute(t, "cache", "clear", "pickles98_full.fits"); err != nil {
		t.Fatalf("cache clear file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cache, "pickles98_full.fits")); !os.IsNotExist(err) {
		t.Fatalf("expected catalogue removed, stat err = %v", err)
	}

	if _, err := execute(t, "cache", "clear"); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cache, "index.dat")); !os.IsNotExist(err) {
		t.Fatalf("expected listing removed, stat err = %v", err)
	}

	if _, err := execute(t, "fetch", "nosuch"); err == nil {
		t.Fatalf("expected error fetching unknown catalogue")
	}
}

func TestInitWritesConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("PYCKLES_CACHE_DIR", "")
	t.Setenv("PYCKLES_SERVER_URL", "")

	if _, err := execute(t, "init", "--server", "https://example.org/spectra/", "--style", "array"); err != nil {
		t.Fatalf("init: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(home, ".pyckles", "pyckles.yaml"))
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(data), "https://example.org/spectra/") || !strings.Contains(string(data), "return_style: array") {
		t.Fatalf("unexpected config:\n%s", data)
	}
	if _, err := os.Stat(filepath.Join(home, ".pyckles", ".env")); err != nil {
		t.Fatalf("dotenv template not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".pyckles", "cache")); err != nil {
		t.Fatalf("cache directory not created: %v", err)
	}

	// A second run keeps the existing file.
	if _, err := execute(t, "init", "--server", "https://other.example/"); err != nil {
		t.Fatalf("second init: %v", err)
	}
	again, _ := os.ReadFile(filepath.Join(home, ".pyckles", "pyckles.yaml"))
	if !bytes.Equal(data, again) {
		t.Fatalf("init overwrote existing config")
	}
}

func TestDoctor(t *testing.T) {
	setupOrigin(t)
	if _, err := execute(t, "doctor"); err != nil {
		t.Fatalf("doctor: %v", err)
	}

	t.Setenv("PYCKLES_SERVER_URL", "http://127.0.0.1:1/")
	t.Setenv("PYCKLES_CACHE_DIR", t.TempDir())
	if _, err := execute(t, "doctor"); err == nil {
		t.Fatalf("expected doctor to fail against an unreachable server")
	}
}
