package vectorindex

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// DefaultCompression is the scheme used for newly written snapshots.
// lz4 favors load/persist latency; zstd trades CPU for smaller files.
const DefaultCompression = "lz4"

type compressFunc func(data []byte) ([]byte, error)

type decompressFunc func(data []byte) ([]byte, error)

// compressionByName returns the compress/decompress pair for a stable
// scheme name. Snapshot headers record the name so files stay readable
// regardless of the configured default.
func compressionByName(name string) (compressFunc, decompressFunc, error) {
	switch name {
	case "none":
		identity := func(data []byte) ([]byte, error) { return data, nil }
		return identity, identity, nil
	case "lz4":
		return lz4Compress, lz4Decompress, nil
	case "zstd":
		return zstdCompress, zstdDecompress, nil
	default:
		return nil, nil, fmt.Errorf("unknown compression scheme %q", name)
	}
}

func lz4Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func lz4Decompress(data []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
}

func zstdCompress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func zstdDecompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}
