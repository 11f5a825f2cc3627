// Package export writes reconciled tables to disk and reads them back.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/printobs/printobs/internal/models"
)

// Format is an export format tag.
type Format string

const (
	NetCDF  Format = "nc"
	Parquet Format = "parquet"
	Gob     Format = "p"
	CSV     Format = "csv"
)

// Formats lists the supported tags.
var Formats = []Format{NetCDF, Parquet, Gob, CSV}

// UnsupportedFormatError is returned for an unknown format tag.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	tags := make([]string, len(Formats))
	for i, f := range Formats {
		tags[i] = string(f)
	}
	return fmt.Sprintf("unsupported export format %q (use one of %s)", e.Format, strings.Join(tags, ", "))
}

// IOWriteError wraps a failure to write the export file.
type IOWriteError struct {
	Path string
	Err  error
}

func (e *IOWriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *IOWriteError) Unwrap() error {
	return e.Err
}

// ParseFormat validates a format tag.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", &UnsupportedFormatError{Format: s}
}

// Write serializes t to path in the given format. The file is written next to
// path and renamed into place once complete.
func Write(path string, format string, t *models.Table) error {
	f, err := ParseFormat(format)
	if err != nil {
		return err
	}

	var encode func(io.Writer, *models.Table) error
	switch f {
	case NetCDF:
		return writeAtomicFile(path, func(tmp string) error { return WriteNetCDF(tmp, t) })
	case Parquet:
		encode = WriteParquet
	case Gob:
		encode = WriteGob
	case CSV:
		encode = WriteCSV
	}
	return writeAtomic(path, func(w io.Writer) error { return encode(w, t) })
}

// Read loads a table previously written by Write.
func Read(path string, format string) (*models.Table, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	if f == NetCDF {
		return ReadNetCDF(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	switch f {
	case Parquet:
		return ReadParquet(file)
	case Gob:
		return ReadGob(file)
	default:
		return ReadCSV(file)
	}
}

// writeAtomicFile is writeAtomic for encoders that own the file themselves.
func writeAtomicFile(path string, encode func(tmp string) error) error {
	tmp := path + ".tmp"
	if err := encode(tmp); err != nil {
		os.Remove(tmp)
		return &IOWriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &IOWriteError{Path: path, Err: err}
	}
	return nil
}

func writeAtomic(path string, encode func(io.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return &IOWriteError{Path: path, Err: err}
	}

	bw := bufio.NewWriter(f)
	if err := encode(bw); err != nil {
		f.Close()
		os.Remove(tmp)
		return &IOWriteError{Path: path, Err: err}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return &IOWriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &IOWriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &IOWriteError{Path: path, Err: err}
	}
	return nil
}
