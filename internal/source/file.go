// Package source loads datasets from CSV files, gzip-compressed CSV,
// PostgreSQL and SQLite, and writes cleaned datasets back out.
package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/JonMunkholm/datacleaner/internal/dataset"
)

var gzipMagic = []byte{0x1f, 0x8b}

// ErrNotCSV is returned for files whose extension is not .csv or .csv.gz.
var ErrNotCSV = errors.New("invalid csv: expected a .csv or .csv.gz file")

// Decompress returns a reader over the plain content of r. Gzip input is
// detected by its magic bytes, so the file name does not matter. The returned
// close func releases the decompressor and must be called.
func Decompress(r io.Reader) (io.Reader, func() error, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(gzipMagic))
	if err != nil && err != io.EOF {
		return nil, nil, fmt.Errorf("read input: %w", err)
	}
	if !bytes.Equal(head, gzipMagic) {
		return br, func() error { return nil }, nil
	}

	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, nil, fmt.Errorf("gzip: %w", err)
	}
	return zr, zr.Close, nil
}

// ReadCSV parses CSV from r, decompressing gzip input transparently.
func ReadCSV(r io.Reader, name string) (*dataset.Dataset, error) {
	plain, closeFn, err := Decompress(r)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	ds, err := dataset.ReadCSV(plain, name)
	if err != nil {
		// A truncated gzip stream surfaces as a csv read error.
		if errors.Is(err, gzip.ErrChecksum) || errors.Is(err, gzip.ErrHeader) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return nil, err
	}
	return ds, nil
}

// ReadFile loads a .csv or .csv.gz file. The dataset is named after the file
// without its extensions.
func ReadFile(path string) (*dataset.Dataset, error) {
	name, ok := DatasetName(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotCSV, filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	ds, err := ReadCSV(f, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return ds, nil
}

// WriteFile writes ds as CSV to path, compressing when path ends in .gz.
func WriteFile(path string, ds *dataset.Dataset) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		return dataset.WriteCSV(f, ds)
	}

	zw := gzip.NewWriter(f)
	if err := dataset.WriteCSV(zw, ds); err != nil {
		return err
	}
	return zw.Close()
}

// DatasetName derives a dataset name from a file name, reporting whether the
// name carries a CSV extension.
func DatasetName(path string) (string, bool) {
	base := filepath.Base(path)
	lower := strings.ToLower(base)
	switch {
	case strings.HasSuffix(lower, ".csv.gz"):
		return base[:len(base)-len(".csv.gz")], true
	case strings.HasSuffix(lower, ".csv"):
		return base[:len(base)-len(".csv")], true
	default:
		return base, false
	}
}
