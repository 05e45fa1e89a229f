// Command matrixd preprocesses OSM road networks and builds travel distance
// matrices over them, either once from the command line or as an HTTP service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"

	"github.com/azybler/distance_matrix/pkg/api"
	"github.com/azybler/distance_matrix/pkg/config"
	"github.com/azybler/distance_matrix/pkg/graph"
	"github.com/azybler/distance_matrix/pkg/logging"
	"github.com/azybler/distance_matrix/pkg/matrix"
	"github.com/azybler/distance_matrix/pkg/oracle"
	"github.com/azybler/distance_matrix/pkg/routing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := NewCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// NewCmd builds the command tree.
func NewCmd() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "matrixd [command] [flags]",
		Short:         "Road travel distance matrices",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: setup,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "`<path>` to config.yaml (defaults apply when empty)")
	rootCmd.PersistentFlags().String("log-level", "", "override log.level: debug|info|warn|error")
	rootCmd.PersistentFlags().String("log-format", "", "override log.format: text|json")

	rootCmd.AddCommand(
		newPreprocessCmd(),
		newServeCmd(),
		newBuildCmd(),
	)
	return rootCmd
}

type cfgKey struct{}

// setup loads the configuration, applies the logging overrides and installs
// the process logger. The config travels to subcommands in the context.
func setup(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	cmd.SetContext(context.WithValue(cmd.Context(), cfgKey{}, cfg))
	return nil
}

func configFrom(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(cfgKey{}).(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

// newOracle loads the road graph named in cfg, or falls back to straight-line
// estimates when straight is set or no graph is configured, and wraps the
// result in the configured cache, rate limit and instrumentation.
func newOracle(cfg *config.Config, straight bool, registry metrics.Registry) (*oracle.Stack, api.StatsResponse, error) {
	var base matrix.Oracle
	var stats api.StatsResponse

	if straight || cfg.Graph.Path == "" {
		base = oracle.NewStraight(cfg.Oracle.StraightSpeedKmh, cfg.Oracle.DetourFactor)
		stats.Oracle = "straight"
		slog.Info("using straight-line distances",
			"speed_kmh", cfg.Oracle.StraightSpeedKmh,
			"detour_factor", cfg.Oracle.DetourFactor)
	} else {
		slog.Info("loading graph", "path", cfg.Graph.Path)
		chg, err := graph.ReadBinary(cfg.Graph.Path)
		if err != nil {
			return nil, stats, fmt.Errorf("load graph: %w", err)
		}
		engine := routing.NewEngine(chg, routing.Options{MaxSnapMeters: cfg.Graph.MaxSnapMeters})
		es := engine.Stats()
		slog.Info("graph loaded",
			"nodes", es.Nodes,
			"edges", es.Edges,
			"fwd_edges", es.FwdEdges,
			"bwd_edges", es.BwdEdges,
			"shortcuts", es.Shortcuts,
			"snap_segments", es.SnapIndexed)
		base = oracle.NewRoad(engine)
		stats = api.StatsResponse{
			Oracle:       "road",
			NumNodes:     es.Nodes,
			NumEdges:     es.Edges,
			NumFwdEdges:  es.FwdEdges,
			NumBwdEdges:  es.BwdEdges,
			NumShortcuts: es.Shortcuts,
		}
	}

	stack := oracle.NewStack(base, oracle.StackOptions{
		CacheTTL:      cfg.Oracle.CacheTTL,
		CacheCapacity: cfg.Oracle.CacheCapacity,
		RateLimit:     cfg.Oracle.RateLimit,
		RateBurst:     cfg.Oracle.RateBurst,
		Registry:      registry,
	})
	return stack, stats, nil
}
