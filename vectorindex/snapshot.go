package vectorindex

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/juridai/lexrag/codec"
	"github.com/juridai/lexrag/model"
)

// Snapshot container layout (all integers little-endian):
//
//  1. header: magic, format version, codec/compression name lengths,
//     dimension, vector count, then the two names
//  2. vectors section: compressed float32 matrix, length + CRC32 prefixed
//  3. passages section: compressed codec-marshaled passages, length + CRC32
//     prefixed
//
// The container is self-describing: codec and compression are selected by
// the names recorded in the header, and the dimension/count allow load-time
// consistency checks. Any inconsistency is ErrStorageCorruption.
var snapshotMagic = [4]byte{'L', 'X', 'S', '1'}

const snapshotFormatVersion = uint16(1)

// maxSectionLen bounds a section read so a corrupted length field cannot
// trigger an absurd allocation.
const maxSectionLen = 1 << 36

// SnapshotOptions configures how a snapshot is written.
type SnapshotOptions struct {
	// Codec marshals the passage section. Defaults to codec.Default.
	Codec codec.Codec

	// Compression names the section compression scheme:
	// "lz4" (default), "zstd", or "none".
	Compression string
}

// WriteSnapshot writes the full index to w.
//
// The write captures one copy-on-write state, so it is consistent even when
// readers run concurrently; callers that need write/persist atomicity against
// other writers serialize externally (the engine's ingest lock).
func (i *Index) WriteSnapshot(w io.Writer, optFns ...func(o *SnapshotOptions)) error {
	opts := SnapshotOptions{Codec: codec.Default, Compression: DefaultCompression}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	compress, _, err := compressionByName(opts.Compression)
	if err != nil {
		return err
	}

	st := i.getState()

	// Header
	var hdr [18]byte
	copy(hdr[0:4], snapshotMagic[:])
	binary.LittleEndian.PutUint16(hdr[4:6], snapshotFormatVersion)
	binary.LittleEndian.PutUint16(hdr[6:8], uint16(len(opts.Codec.Name())))
	binary.LittleEndian.PutUint16(hdr[8:10], uint16(len(opts.Compression)))
	binary.LittleEndian.PutUint32(hdr[10:14], uint32(i.dimension))
	binary.LittleEndian.PutUint32(hdr[14:18], uint32(len(st.vectors)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, opts.Codec.Name()); err != nil {
		return err
	}
	if _, err := io.WriteString(w, opts.Compression); err != nil {
		return err
	}

	// Vectors section: dense float32 matrix.
	vecBytes := make([]byte, 0, len(st.vectors)*i.dimension*4)
	var scratch [4]byte
	for _, vec := range st.vectors {
		for _, x := range vec {
			binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(x))
			vecBytes = append(vecBytes, scratch[:]...)
		}
	}
	if err := writeSection(w, vecBytes, compress); err != nil {
		return fmt.Errorf("write vectors section: %w", err)
	}

	// Passages section: codec-marshaled.
	passageBytes, err := opts.Codec.Marshal(st.passages)
	if err != nil {
		return fmt.Errorf("encode passages: %w", err)
	}
	if err := writeSection(w, passageBytes, compress); err != nil {
		return fmt.Errorf("write passages section: %w", err)
	}

	return nil
}

// ReadSnapshot loads an index from a snapshot previously written with
// WriteSnapshot. The container is self-describing, so no options are needed.
func ReadSnapshot(r io.Reader) (*Index, error) {
	var hdr [18]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, &ErrStorageCorruption{Reason: "truncated header", cause: err}
	}
	if !bytes.Equal(hdr[0:4], snapshotMagic[:]) {
		return nil, &ErrStorageCorruption{Reason: "bad magic number"}
	}
	if version := binary.LittleEndian.Uint16(hdr[4:6]); version != snapshotFormatVersion {
		return nil, &ErrStorageCorruption{Reason: fmt.Sprintf("unsupported format version %d", version)}
	}

	codecNameLen := int(binary.LittleEndian.Uint16(hdr[6:8]))
	compNameLen := int(binary.LittleEndian.Uint16(hdr[8:10]))
	dimension := int(binary.LittleEndian.Uint32(hdr[10:14]))
	count := int(binary.LittleEndian.Uint32(hdr[14:18]))

	names := make([]byte, codecNameLen+compNameLen)
	if _, err := io.ReadFull(r, names); err != nil {
		return nil, &ErrStorageCorruption{Reason: "truncated header names", cause: err}
	}
	codecName := string(names[:codecNameLen])
	compName := string(names[codecNameLen:])

	c, ok := codec.ByName(codecName)
	if !ok {
		return nil, &ErrStorageCorruption{Reason: fmt.Sprintf("unknown codec %q", codecName)}
	}
	_, decompress, err := compressionByName(compName)
	if err != nil {
		return nil, &ErrStorageCorruption{Reason: fmt.Sprintf("unknown compression %q", compName)}
	}
	if dimension <= 0 {
		return nil, &ErrStorageCorruption{Reason: fmt.Sprintf("invalid dimension %d", dimension)}
	}

	vecBytes, err := readSection(r, decompress)
	if err != nil {
		return nil, fmt.Errorf("read vectors section: %w", err)
	}
	if len(vecBytes) != count*dimension*4 {
		return nil, &ErrStorageCorruption{
			Reason: fmt.Sprintf("vector data is %d bytes, expected %d", len(vecBytes), count*dimension*4),
		}
	}

	passageBytes, err := readSection(r, decompress)
	if err != nil {
		return nil, fmt.Errorf("read passages section: %w", err)
	}
	var passages []model.Passage
	if err := c.Unmarshal(passageBytes, &passages); err != nil {
		return nil, &ErrStorageCorruption{Reason: "undecodable passages section", cause: err}
	}
	if len(passages) != count {
		return nil, &ErrStorageCorruption{
			Reason: fmt.Sprintf("%d passages for %d vectors", len(passages), count),
		}
	}

	idx, err := New(dimension)
	if err != nil {
		return nil, err
	}

	st := idx.getState()
	st.vectors = make([][]float32, count)
	st.passages = passages
	for n := range count {
		vec := make([]float32, dimension)
		for d := range dimension {
			off := (n*dimension + d) * 4
			vec[d] = math.Float32frombits(binary.LittleEndian.Uint32(vecBytes[off : off+4]))
		}
		st.vectors[n] = vec

		if source := passages[n].Source(); source != "" {
			bm, ok := st.sources[source]
			if !ok {
				bm = roaring.New()
				st.sources[source] = bm
			}
			bm.Add(uint32(n))
		}
	}

	return idx, nil
}

func writeSection(w io.Writer, data []byte, compress compressFunc) error {
	compressed, err := compress(data)
	if err != nil {
		return err
	}

	var prefix [12]byte
	binary.LittleEndian.PutUint64(prefix[0:8], uint64(len(compressed)))
	binary.LittleEndian.PutUint32(prefix[8:12], crc32.ChecksumIEEE(compressed))
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	_, err = w.Write(compressed)
	return err
}

func readSection(r io.Reader, decompress decompressFunc) ([]byte, error) {
	var prefix [12]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, &ErrStorageCorruption{Reason: "truncated section header", cause: err}
	}
	length := binary.LittleEndian.Uint64(prefix[0:8])
	sum := binary.LittleEndian.Uint32(prefix[8:12])

	if length > maxSectionLen {
		return nil, &ErrStorageCorruption{Reason: fmt.Sprintf("implausible section length %d", length)}
	}

	compressed := make([]byte, length)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, &ErrStorageCorruption{Reason: "truncated section data", cause: err}
	}
	if actual := crc32.ChecksumIEEE(compressed); actual != sum {
		return nil, &ErrStorageCorruption{
			Reason: fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", sum, actual),
		}
	}

	data, err := decompress(compressed)
	if err != nil {
		return nil, &ErrStorageCorruption{Reason: "undecompressable section", cause: err}
	}
	return data, nil
}
