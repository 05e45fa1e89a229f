package osm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"github.com/azybler/distance_matrix/pkg/geo"
)

// RawEdge is a directed road edge parsed from OSM data.
type RawEdge struct {
	FromNodeID osm.NodeID
	ToNodeID   osm.NodeID
	Length     uint32 // millimeters
	Cost       uint32 // travel time in milliseconds
}

// ParseResult holds the output of parsing an OSM PBF file.
type ParseResult struct {
	Edges   []RawEdge
	NodeLat map[osm.NodeID]float64
	NodeLon map[osm.NodeID]float64
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	// BBox keeps only edges with both endpoints inside it. The zero bound disables filtering.
	BBox orb.Bound
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// wayInfo holds the parts of a way needed after the first pass.
type wayInfo struct {
	nodeIDs  []osm.NodeID
	forward  bool
	backward bool
	speedKmh float64
}

// Parse reads an OSM PBF file and returns directed, costed edges for car routing.
// The reader is consumed twice (ways first, then nodes), so it must be seekable.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*ParseResult, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	useBBox := opt.BBox != (orb.Bound{})

	ways, referenced, err := scanWays(ctx, rs)
	if err != nil {
		return nil, err
	}
	logger.Info("osm ways scanned", "ways", len(ways), "referenced_nodes", len(referenced))

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for node pass: %w", err)
	}
	nodeLat, nodeLon, err := scanNodes(ctx, rs, referenced)
	if err != nil {
		return nil, err
	}
	logger.Info("osm nodes scanned", "coordinates", len(nodeLat))

	var (
		edges        []RawEdge
		missing      int
		bboxFiltered int
	)
	for _, w := range ways {
		for i := 0; i+1 < len(w.nodeIDs); i++ {
			from, to := w.nodeIDs[i], w.nodeIDs[i+1]

			fromLat, okFrom := nodeLat[from]
			toLat, okTo := nodeLat[to]
			if !okFrom || !okTo {
				missing++
				continue
			}
			fromLon, toLon := nodeLon[from], nodeLon[to]

			if useBBox && (!opt.BBox.Contains(orb.Point{fromLon, fromLat}) || !opt.BBox.Contains(orb.Point{toLon, toLat})) {
				bboxFiltered++
				continue
			}

			length, cost := edgeWeights(geo.Haversine(fromLat, fromLon, toLat, toLon), w.speedKmh)
			if w.forward {
				edges = append(edges, RawEdge{FromNodeID: from, ToNodeID: to, Length: length, Cost: cost})
			}
			if w.backward {
				edges = append(edges, RawEdge{FromNodeID: to, ToNodeID: from, Length: length, Cost: cost})
			}
		}
	}

	if missing > 0 {
		logger.Warn("skipped edges with missing node coordinates", "edges", missing)
	}
	if bboxFiltered > 0 {
		logger.Info("filtered edges outside bounding box", "edges", bboxFiltered)
	}
	logger.Info("osm edges built", "edges", len(edges))

	return &ParseResult{Edges: edges, NodeLat: nodeLat, NodeLon: nodeLon}, nil
}

func scanWays(ctx context.Context, r io.Reader) ([]wayInfo, map[osm.NodeID]struct{}, error) {
	scanner := osmpbf.New(ctx, r, 1)
	defer scanner.Close()
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	referenced := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok || len(w.Nodes) < 2 || !isCarAccessible(w.Tags) {
			continue
		}
		fwd, bwd := directionFlags(w.Tags)
		if !fwd && !bwd {
			continue
		}

		ids := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			ids[i] = wn.ID
			referenced[wn.ID] = struct{}{}
		}
		ways = append(ways, wayInfo{
			nodeIDs:  ids,
			forward:  fwd,
			backward: bwd,
			speedKmh: wayspeed(w.Tags),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan ways: %w", err)
	}
	return ways, referenced, nil
}

func scanNodes(ctx context.Context, r io.Reader, referenced map[osm.NodeID]struct{}) (lat, lon map[osm.NodeID]float64, err error) {
	scanner := osmpbf.New(ctx, r, 1)
	defer scanner.Close()
	scanner.SkipWays = true
	scanner.SkipRelations = true

	lat = make(map[osm.NodeID]float64, len(referenced))
	lon = make(map[osm.NodeID]float64, len(referenced))

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referenced[n.ID]; !needed {
			continue
		}
		lat[n.ID] = n.Lat
		lon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan nodes: %w", err)
	}
	return lat, lon, nil
}

// edgeWeights converts a segment length in meters and a speed into the
// integer length (mm) and cost (ms) stored on graph edges. Both are at least 1.
func edgeWeights(meters, speedKmh float64) (length, cost uint32) {
	mm := math.Round(meters * 1000)
	ms := math.Round(mm * 3.6 / speedKmh)
	return uint32(max(mm, 1)), uint32(max(ms, 1))
}
