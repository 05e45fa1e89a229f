package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/azybler/distance_matrix/pkg/api"
	"github.com/azybler/distance_matrix/pkg/geo"
	"github.com/azybler/distance_matrix/pkg/matrix"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build --locations <file.json> [flags]",
		Short: "Build one distance matrix and print it",
		Long: `Reads locations as JSON, either {"locations":[...]} or a bare array of
{"id","lat","lng"} objects, builds the matrix and prints it as a table.
Rows are origins, columns destinations.`,
		RunE: doBuild,
	}
	cmd.Flags().StringP("locations", "l", "", "`<path>` to the locations file, - for stdin")
	cmd.Flags().String("graph", "", "override graph.path")
	cmd.Flags().Bool("straight", false, "use straight-line distances instead of the road graph")
	cmd.Flags().Int("workers", 0, "override matrix.workers")
	cmd.MarkFlagRequired("locations")
	return cmd
}

func doBuild(cmd *cobra.Command, _ []string) error {
	cfg := configFrom(cmd)
	flags := cmd.Flags()
	if flags.Changed("graph") {
		cfg.Graph.Path, _ = flags.GetString("graph")
	}
	if flags.Changed("workers") {
		cfg.Matrix.Workers, _ = flags.GetInt("workers")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	straight, _ := flags.GetBool("straight")

	path, _ := flags.GetString("locations")
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open locations: %w", err)
		}
		defer f.Close()
		r = f
	}
	locs, err := readLocations(r)
	if err != nil {
		return err
	}

	stack, _, err := newOracle(cfg, straight, nil)
	if err != nil {
		return err
	}
	defer stack.Close()

	m, err := matrix.Generate(cmd.Context(), locs, stack,
		matrix.WithWorkers(cfg.Matrix.Workers),
		matrix.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	renderMatrix(cmd.OutOrStdout(), m)
	return nil
}

// readLocations decodes a locations file. Missing IDs get a UUID.
func readLocations(r io.Reader) ([]matrix.Location, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read locations: %w", err)
	}

	var raw []api.LocationJSON
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &raw)
	} else {
		var req api.MatrixRequest
		err = json.Unmarshal(data, &req)
		raw = req.Locations
	}
	if err != nil {
		return nil, fmt.Errorf("decode locations: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no locations")
	}

	locs := make([]matrix.Location, len(raw))
	for i, l := range raw {
		ll := geo.LatLng{Lat: l.Lat, Lng: l.Lng}
		if !ll.Valid() {
			return nil, fmt.Errorf("location %d: invalid coordinates %s", i, ll)
		}
		locs[i] = matrix.NewLocation(ll.Lat, ll.Lng)
		if l.ID != "" {
			locs[i].ID = l.ID
		}
	}
	return locs, nil
}

// renderMatrix prints the matrix as a table followed by any failures.
func renderMatrix(w io.Writer, m *matrix.Matrix) {
	locs := m.Locations()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := table.Row{"from \\ to"}
	for _, l := range locs {
		header = append(header, l.ID)
	}
	t.AppendHeader(header)
	for i, from := range locs {
		row := table.Row{from.ID}
		for j := range locs {
			row = append(row, formatDistance(m.At(i, j)))
		}
		t.AppendRow(row)
	}
	t.SetCaption("%d locations, built in %s", m.Dimension(), m.GenerationDuration().Round(time.Millisecond))
	t.Render()

	if failures := m.Failures(); len(failures) > 0 {
		ft := table.NewWriter()
		ft.SetOutputMirror(w)
		ft.SetStyle(table.StyleLight)
		ft.AppendHeader(table.Row{"origin", "destination", "error"})
		for _, f := range failures {
			ft.AppendRow(table.Row{f.Origin.ID, f.Destination.ID, f.Err.Error()})
		}
		ft.Render()
	}
}

func formatDistance(d matrix.Distance) string {
	if !d.Reachable() {
		return "-"
	}
	return fmt.Sprintf("%.0f m / %s", d.Meters, d.Duration.Round(time.Second))
}
