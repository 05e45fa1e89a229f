package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/azybler/distance_matrix/pkg/ch"
	"github.com/azybler/distance_matrix/pkg/graph"
	osmparser "github.com/azybler/distance_matrix/pkg/osm"
)

var (
	singaporeBBox = orb.Bound{Min: orb.Point{103.6, 1.15}, Max: orb.Point{104.1, 1.48}}
	klBBox        = orb.Bound{Min: orb.Point{101.2, 2.75}, Max: orb.Point{102.0, 3.5}}
)

func newPreprocessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preprocess --input <file.osm.pbf> [flags]",
		Short: "Build a contracted road graph from an OSM extract",
		RunE:  doPreprocess,
	}
	cmd.Flags().StringP("input", "i", "", "`<path>` to the .osm.pbf file")
	cmd.Flags().StringP("output", "o", "graph.bin", "`<path>` of the binary graph to write")
	cmd.Flags().String("bbox", "", "keep only roads inside `minLat,minLng,maxLat,maxLng`")
	cmd.Flags().Bool("singapore", false, "shortcut for --bbox 1.15,103.6,1.48,104.1")
	cmd.Flags().Bool("kl", false, "shortcut for --bbox 2.75,101.2,3.5,102.0 (Selangor + Kuala Lumpur)")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagsMutuallyExclusive("bbox", "singapore", "kl")
	return cmd
}

// parseBBox reads minLat,minLng,maxLat,maxLng into an orb bound.
func parseBBox(s string) (orb.Bound, error) {
	var minLat, minLng, maxLat, maxLng float64
	if _, err := fmt.Sscanf(s, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng); err != nil {
		return orb.Bound{}, fmt.Errorf("invalid bbox %q (want minLat,minLng,maxLat,maxLng): %w", s, err)
	}
	if minLat >= maxLat || minLng >= maxLng {
		return orb.Bound{}, fmt.Errorf("invalid bbox %q: min must be below max", s)
	}
	return orb.Bound{Min: orb.Point{minLng, minLat}, Max: orb.Point{maxLng, maxLat}}, nil
}

func doPreprocess(cmd *cobra.Command, _ []string) error {
	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	log := slog.Default()

	opts := osmparser.ParseOptions{Logger: log}
	switch {
	case mustBool(cmd, "kl"):
		opts.BBox = klBBox
	case mustBool(cmd, "singapore"):
		opts.BBox = singaporeBBox
	default:
		if s, _ := cmd.Flags().GetString("bbox"); s != "" {
			b, err := parseBBox(s)
			if err != nil {
				return err
			}
			opts.BBox = b
		}
	}
	if opts.BBox != (orb.Bound{}) {
		log.Info("bounding box filter",
			"lat", [2]float64{opts.BBox.Min.Lat(), opts.BBox.Max.Lat()},
			"lng", [2]float64{opts.BBox.Min.Lon(), opts.BBox.Max.Lon()})
	}

	start := time.Now()

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	log.Info("parsing OSM data", "input", input)
	parsed, err := osmparser.Parse(cmd.Context(), f, opts)
	if err != nil {
		return fmt.Errorf("parse OSM data: %w", err)
	}
	log.Info("parsed", "edges", len(parsed.Edges), "nodes", len(parsed.NodeLat))

	g := graph.Build(parsed)
	log.Info("graph built", "nodes", g.NumNodes, "edges", g.NumEdges)
	if g.NumNodes == 0 {
		return fmt.Errorf("no drivable roads in %s", input)
	}

	nodes := graph.LargestComponent(g)
	log.Info("largest component",
		"nodes", len(nodes),
		"share", fmt.Sprintf("%.1f%%", float64(len(nodes))/float64(g.NumNodes)*100))
	g = graph.FilterToComponent(g, nodes)

	chg := ch.Contract(g)
	log.Info("contraction complete",
		"fwd_edges", chg.Fwd.NumEdges(),
		"bwd_edges", chg.Bwd.NumEdges(),
		"shortcuts", chg.Shortcuts())

	if err := graph.WriteBinary(output, chg); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}

	info, err := os.Stat(output)
	if err != nil {
		return err
	}
	log.Info("done",
		"took", time.Since(start).Round(time.Second),
		"output", output,
		"size_mb", fmt.Sprintf("%.1f", float64(info.Size())/(1024*1024)))
	return nil
}

func mustBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}
