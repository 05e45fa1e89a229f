package graph_test

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/paulmach/osm"

	"github.com/azybler/distance_matrix/pkg/ch"
	"github.com/azybler/distance_matrix/pkg/graph"
	osmparser "github.com/azybler/distance_matrix/pkg/osm"
)

func buildTestCH(t *testing.T) *graph.CHGraph {
	t.Helper()
	g := graph.Build(&osmparser.ParseResult{
		Edges: []osmparser.RawEdge{
			{FromNodeID: 10, ToNodeID: 20, Length: 1000, Cost: 100},
			{FromNodeID: 20, ToNodeID: 10, Length: 1000, Cost: 100},
			{FromNodeID: 20, ToNodeID: 30, Length: 2000, Cost: 200},
			{FromNodeID: 30, ToNodeID: 20, Length: 2000, Cost: 250},
			{FromNodeID: 10, ToNodeID: 40, Length: 3000, Cost: 300},
			{FromNodeID: 40, ToNodeID: 10, Length: 3000, Cost: 300},
		},
		NodeLat: map[osm.NodeID]float64{10: 1.0, 20: 1.1, 30: 1.2, 40: 1.3},
		NodeLon: map[osm.NodeID]float64{10: 103.0, 20: 103.1, 30: 103.2, 40: 103.3},
	})
	return ch.Contract(g)
}

func TestBinaryRoundTrip(t *testing.T) {
	original := buildTestCH(t)
	path := filepath.Join(t.TempDir(), "test.graph.bin")

	if err := graph.WriteBinary(path, original); err != nil {
		t.Fatalf("WriteBinary: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}

	loaded, err := graph.ReadBinary(path)
	if err != nil {
		t.Fatalf("ReadBinary: %v", err)
	}

	if loaded.NumNodes() != original.NumNodes() {
		t.Errorf("NumNodes: got %d, want %d", loaded.NumNodes(), original.NumNodes())
	}
	if loaded.Rank != nil {
		t.Errorf("Rank should be nil after ReadBinary, got len=%d", len(loaded.Rank))
	}

	ob, lb := original.Base, loaded.Base
	if !slices.Equal(lb.NodeLat, ob.NodeLat) || !slices.Equal(lb.NodeLon, ob.NodeLon) {
		t.Error("node coordinates differ")
	}
	if !slices.Equal(lb.FirstOut, ob.FirstOut) || !slices.Equal(lb.Head, ob.Head) ||
		!slices.Equal(lb.Length, ob.Length) || !slices.Equal(lb.Cost, ob.Cost) {
		t.Error("base graph differs")
	}

	for name, pair := range map[string][2]*graph.Overlay{
		"fwd": {&original.Fwd, &loaded.Fwd},
		"bwd": {&original.Bwd, &loaded.Bwd},
	} {
		want, got := pair[0], pair[1]
		if !slices.Equal(got.FirstOut, want.FirstOut) || !slices.Equal(got.Head, want.Head) ||
			!slices.Equal(got.Cost, want.Cost) || !slices.Equal(got.Length, want.Length) ||
			!slices.Equal(got.Middle, want.Middle) {
			t.Errorf("%s overlay differs", name)
		}
	}
}

func TestBinaryCorruptedPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.graph.bin")
	if err := graph.WriteBinary(path, buildTestCH(t)); err != nil {
		t.Fatalf("WriteBinary: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Flip a byte inside the node coordinates, after the 28-byte header.
	data[40] ^= 0xFF
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := graph.ReadBinary(path); err == nil {
		t.Fatal("expected CRC error for corrupted payload")
	}
}

func TestBinaryInvalidMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.graph.bin")
	os.WriteFile(path, []byte("NOT_A_DISTMTRX_HEADER_BLAH_BLAH_MORE_DATA"), 0o644)

	if _, err := graph.ReadBinary(path); err == nil {
		t.Fatal("expected error for invalid magic bytes")
	}
}

func TestBinaryTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truncated.graph.bin")
	os.WriteFile(path, []byte("DISTMTRX"), 0o644)

	if _, err := graph.ReadBinary(path); err == nil {
		t.Fatal("expected error for truncated file")
	}
}

func TestWriteBinaryEmptyGraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.graph.bin")
	if err := graph.WriteBinary(path, &graph.CHGraph{Base: &graph.Graph{}}); err == nil {
		t.Fatal("expected error writing an empty graph")
	}
}
