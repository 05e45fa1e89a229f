package main

import (
	"log/slog"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"

	"github.com/azybler/distance_matrix/pkg/api"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [flags]",
		Short: "Serve distance matrices over HTTP",
		RunE:  doServe,
	}
	cmd.Flags().String("addr", "", "override server.addr")
	cmd.Flags().String("graph", "", "override graph.path")
	cmd.Flags().String("cors-origin", "", "override server.cors_origin")
	cmd.Flags().Int("workers", 0, "override matrix.workers")
	cmd.Flags().Bool("straight", false, "use straight-line distances instead of the road graph")
	return cmd
}

func doServe(cmd *cobra.Command, _ []string) error {
	cfg := configFrom(cmd)
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("graph") {
		cfg.Graph.Path, _ = flags.GetString("graph")
	}
	if flags.Changed("cors-origin") {
		cfg.Server.CORSOrigin, _ = flags.GetString("cors-origin")
	}
	if flags.Changed("workers") {
		cfg.Matrix.Workers, _ = flags.GetInt("workers")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	straight, _ := flags.GetBool("straight")

	registry := metrics.NewRegistry()
	stack, stats, err := newOracle(cfg, straight, registry)
	if err != nil {
		return err
	}
	defer stack.Close()

	log := slog.Default()
	handlers := api.NewHandlers(stack, stats, api.HandlerOptions{
		Workers:      cfg.Matrix.Workers,
		MaxLocations: cfg.Matrix.MaxLocations,
		Logger:       log,
		Registry:     registry,
	})
	srv := api.NewServer(api.ServerConfig{
		Addr:           cfg.Server.Addr,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxConcurrent:  cfg.Server.MaxConcurrent,
		CORSOrigin:     cfg.Server.CORSOrigin,
		Logger:         log,
	}, handlers)

	return api.ListenAndServe(cmd.Context(), srv, log)
}
