package main

import (
	"github.com/spf13/cobra"

	"github.com/alnah/go-mdexport"
	"github.com/alnah/go-mdexport/internal/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve exports over HTTP",
		Long: `Serve exports over HTTP.

  POST /export/{format}?filename=name   markdown body, artifact response
  GET  /healthz                         liveness probe`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			size := mdexport.ResolvePoolSize(cfg.Workers)
			pool := mdexport.NewExporterPool(size, exporterOptions(cfg, c.logger)...)
			defer func() { _ = pool.Close() }()
			c.logger.Debug("exporter pool", "size", size)

			srv := server.New(server.FromExporterPool(pool),
				server.WithLogger(c.logger),
				server.WithVersion(Version),
				server.WithRequestTimeout(requestTimeout(cfg.TimeoutDuration(), server.DefaultRequestTimeout)),
			)
			return srv.ListenAndServe(cmd.Context(), cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default \":8080\")")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "exporter pool size (0 = auto)")
	return cmd
}
