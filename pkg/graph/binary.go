package graph

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"os"
	"unsafe"
)

const (
	magicBytes = "DISTMTRX"
	version    = uint32(1)
	maxNodes   = 10_000_000
	maxEdges   = 50_000_000
)

// fileHeader is the fixed-size prefix of a graph file. Every section after it
// has a length derived from these counts.
type fileHeader struct {
	Magic       [8]byte
	Version     uint32
	NumNodes    uint32
	NumEdges    uint32
	NumFwdEdges uint32
	NumBwdEdges uint32
}

// word is the set of element types stored in graph files.
type word interface {
	uint32 | int32 | float64
}

// WriteBinary serializes a CH graph to path. The file is written to a
// temporary sibling and renamed into place, so readers never see a partial file.
func WriteBinary(path string, chg *CHGraph) (err error) {
	if chg.Base == nil || chg.Base.NumNodes == 0 {
		return errors.New("graph is empty")
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	w := &crcWriter{w: f, hash: crc32.NewIEEE()}
	base := chg.Base

	hdr := fileHeader{
		Version:     version,
		NumNodes:    base.NumNodes,
		NumEdges:    base.NumEdges,
		NumFwdEdges: uint32(chg.Fwd.NumEdges()),
		NumBwdEdges: uint32(chg.Bwd.NumEdges()),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	sections := []struct {
		name  string
		write func() error
	}{
		{"NodeLat", func() error { return writeSlice(w, base.NodeLat) }},
		{"NodeLon", func() error { return writeSlice(w, base.NodeLon) }},
		{"FirstOut", func() error { return writeSlice(w, base.FirstOut) }},
		{"Head", func() error { return writeSlice(w, base.Head) }},
		{"Length", func() error { return writeSlice(w, base.Length) }},
		{"Cost", func() error { return writeSlice(w, base.Cost) }},
		{"Rank", func() error { return writeSlice(w, chg.Rank) }},
		{"Fwd", func() error { return writeOverlay(w, &chg.Fwd) }},
		{"Bwd", func() error { return writeOverlay(w, &chg.Bwd) }},
	}
	for _, s := range sections {
		if err := s.write(); err != nil {
			return fmt.Errorf("write %s: %w", s.name, err)
		}
	}

	if err := binary.Write(f, binary.LittleEndian, w.hash.Sum32()); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ReadBinary loads a CH graph written by WriteBinary. Rank is only needed
// during preprocessing and is skipped, so the returned Rank is nil.
func ReadBinary(path string) (*CHGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	r := &crcReader{r: f, hash: crc32.NewIEEE()}

	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, fmt.Errorf("NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
	}
	if hdr.NumEdges > maxEdges || hdr.NumFwdEdges > maxEdges || hdr.NumBwdEdges > maxEdges {
		return nil, fmt.Errorf("edge count exceeds limit %d", maxEdges)
	}

	n := int(hdr.NumNodes)
	base := &Graph{NumNodes: hdr.NumNodes, NumEdges: hdr.NumEdges}
	chg := &CHGraph{Base: base}

	sections := []struct {
		name string
		read func() error
	}{
		{"NodeLat", func() (err error) { base.NodeLat, err = readSlice[float64](r, n); return }},
		{"NodeLon", func() (err error) { base.NodeLon, err = readSlice[float64](r, n); return }},
		{"FirstOut", func() (err error) { base.FirstOut, err = readSlice[uint32](r, n+1); return }},
		{"Head", func() (err error) { base.Head, err = readSlice[uint32](r, int(hdr.NumEdges)); return }},
		{"Length", func() (err error) { base.Length, err = readSlice[uint32](r, int(hdr.NumEdges)); return }},
		{"Cost", func() (err error) { base.Cost, err = readSlice[uint32](r, int(hdr.NumEdges)); return }},
		{"Rank", func() error { return skipBytes(r, n*4) }},
		{"Fwd", func() error { return readOverlay(r, &chg.Fwd, n, int(hdr.NumFwdEdges)) }},
		{"Bwd", func() error { return readOverlay(r, &chg.Bwd, n, int(hdr.NumBwdEdges)) }},
	}
	for _, s := range sections {
		if err := s.read(); err != nil {
			return nil, fmt.Errorf("read %s: %w", s.name, err)
		}
	}

	expected := r.hash.Sum32()
	var stored uint32
	if err := binary.Read(f, binary.LittleEndian, &stored); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if stored != expected {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", stored, expected)
	}

	if err := validateCSR(base.FirstOut, base.Head, hdr.NumNodes); err != nil {
		return nil, fmt.Errorf("base CSR invalid: %w", err)
	}
	if err := validateCSR(chg.Fwd.FirstOut, chg.Fwd.Head, hdr.NumNodes); err != nil {
		return nil, fmt.Errorf("forward CSR invalid: %w", err)
	}
	if err := validateCSR(chg.Bwd.FirstOut, chg.Bwd.Head, hdr.NumNodes); err != nil {
		return nil, fmt.Errorf("backward CSR invalid: %w", err)
	}
	return chg, nil
}

func writeOverlay(w io.Writer, o *Overlay) error {
	if err := writeSlice(w, o.FirstOut); err != nil {
		return err
	}
	if err := writeSlice(w, o.Head); err != nil {
		return err
	}
	if err := writeSlice(w, o.Cost); err != nil {
		return err
	}
	if err := writeSlice(w, o.Length); err != nil {
		return err
	}
	return writeSlice(w, o.Middle)
}

func readOverlay(r io.Reader, o *Overlay, numNodes, numEdges int) (err error) {
	if o.FirstOut, err = readSlice[uint32](r, numNodes+1); err != nil {
		return err
	}
	if o.Head, err = readSlice[uint32](r, numEdges); err != nil {
		return err
	}
	if o.Cost, err = readSlice[uint32](r, numEdges); err != nil {
		return err
	}
	if o.Length, err = readSlice[uint32](r, numEdges); err != nil {
		return err
	}
	o.Middle, err = readSlice[int32](r, numEdges)
	return err
}

// validateCSR checks CSR invariants.
func validateCSR(firstOut, head []uint32, numNodes uint32) error {
	if uint32(len(firstOut)) != numNodes+1 {
		return fmt.Errorf("FirstOut length %d != NumNodes+1 %d", len(firstOut), numNodes+1)
	}
	if numEdges := firstOut[numNodes]; uint32(len(head)) != numEdges {
		return fmt.Errorf("Head length %d != FirstOut[NumNodes] %d", len(head), numEdges)
	}
	for i := uint32(1); i <= numNodes; i++ {
		if firstOut[i] < firstOut[i-1] {
			return fmt.Errorf("FirstOut not monotonic at %d: %d < %d", i, firstOut[i], firstOut[i-1])
		}
	}
	for i, h := range head {
		if h >= numNodes {
			return fmt.Errorf("Head[%d]=%d >= NumNodes=%d", i, h, numNodes)
		}
	}
	return nil
}

// skipBytes reads and discards n bytes from r.
func skipBytes(r io.Reader, n int) error {
	_, err := io.CopyN(io.Discard, r, int64(n))
	return err
}

// writeSlice writes the raw little-endian bytes of s without copying.
func writeSlice[T word](w io.Writer, s []T) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(s[0])))
	_, err := w.Write(b)
	return err
}

// readSlice reads n elements straight into a freshly allocated slice.
func readSlice[T word](r io.Reader, n int) ([]T, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]T, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*int(unsafe.Sizeof(s[0])))
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

type crcWriter struct {
	w    io.Writer
	hash hash.Hash32
}

func (cw *crcWriter) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crcReader struct {
	r    io.Reader
	hash hash.Hash32
}

func (cr *crcReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
