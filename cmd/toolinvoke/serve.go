package main

import (
	"github.com/jonwraymond/toolinvoke/gateway"
	"github.com/spf13/cobra"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the manifest's tools over HTTP",
		Long: `Serve exposes the tools as an HTTP API:

  GET  /tools          list tools
  POST /tools/{name}   invoke a tool with a JSON body
  GET  /healthz /readyz /health

With --metrics-exporter prometheus, metrics are served at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := a.setup(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			opts := []gateway.Option{gateway.WithLogger(rt.logger)}
			if a.metricsExporter == "prometheus" {
				opts = append(opts, gateway.WithMetrics())
			}
			return gateway.New(rt.box, opts...).ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}
