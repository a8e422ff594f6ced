package catalog

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

var (
	magicGzip = []byte{0x1f, 0x8b}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLZ4  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Compression names a catalogue file encoding.
type Compression string

const (
	None Compression = "none"
	Gzip Compression = "gzip"
	Zstd Compression = "zstd"
	LZ4  Compression = "lz4"
)

// Detect returns the compression of data from its leading magic bytes.
func Detect(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, magicGzip):
		return Gzip
	case bytes.HasPrefix(data, magicZstd):
		return Zstd
	case bytes.HasPrefix(data, magicLZ4):
		return LZ4
	}
	return None
}

func decompress(data []byte) ([]byte, error) {
	switch Detect(data) {
	case Gzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case Zstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	case LZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	}
	return data, nil
}

// Compress encodes data with c. It is the inverse of the transparent
// decompression Open applies.
func Compress(w io.Writer, c Compression, data []byte) error {
	var (
		wc  io.WriteCloser
		err error
	)
	switch c {
	case None:
		_, err = w.Write(data)
		return err
	case Gzip:
		wc = gzip.NewWriter(w)
	case Zstd:
		wc, err = zstd.NewWriter(w)
		if err != nil {
			return err
		}
	case LZ4:
		wc = lz4.NewWriter(w)
	default:
		return fmt.Errorf("unknown compression %q", c)
	}
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return err
	}
	return wc.Close()
}
