package utils

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
)

// Encoding identifies a compressed copy of an index file
type Encoding string

const (
	EncodingGzip  Encoding = "gzip"
	EncodingBzip2 Encoding = "bzip2"
)

// Extension returns the file name suffix for the encoding
func (e Encoding) Extension() string {
	switch e {
	case EncodingGzip:
		return ".gz"
	case EncodingBzip2:
		return ".bz2"
	}
	return ""
}

// Compress returns data compressed with the encoding
func (e Encoding) Compress(data []byte) ([]byte, error) {
	switch e {
	case EncodingGzip:
		return GzipCompress(data)
	case EncodingBzip2:
		return Bzip2Compress(data)
	}
	return nil, fmt.Errorf("unknown encoding %q", string(e))
}

// GzipCompress compresses data using gzip
func GzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// GzipDecompress decompresses gzip data
func GzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// Bzip2Compress compresses data using bzip2
func Bzip2Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: bzip2.BestCompression})
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Bzip2Decompress decompresses bzip2 data
func Bzip2Decompress(data []byte) ([]byte, error) {
	r, err := bzip2.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}
