// Package pyckles gives access to libraries of stellar spectra published
// as catalogue files on a remote server.
//
// A SpectralLibrary attaches one catalogue and returns its spectra by name
// in the configured representation:
//
//	lib, err := pyckles.New(ctx, "Pickles", pyckles.WithReturnStyle(spectrum.StyleArray))
//	if err != nil {
//		return err
//	}
//	defer lib.Close()
//	sp, err := lib.Get("A0V")
//
// Catalogue files are downloaded once into ~/.pyckles/cache (override with
// PYCKLES_CACHE_DIR) and verified against the hash published in the
// catalogue index.
package pyckles
