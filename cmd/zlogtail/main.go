// Command zlogtail is a small demo and admin tool for zlog: it
// initializes a configuration, optionally exposes zlog's Prometheus
// counters over HTTP, and dumps the live Profile() snapshot on request —
// a CLI-shaped harness for exercising the library the way the original
// project's own example binaries exercise akzlog.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	zlog "github.com/zlog-go/zlog"
)

func main() {
	var (
		configPath string
		category   string
		metricsAddr string
	)

	root := &cobra.Command{
		Use:   "zlogtail",
		Short: "Run zlog against a configuration and report its live state",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			opts := []zlog.Option{zlog.WithMetricsRegisterer(reg), zlog.WithWatcher()}

			if err := zlog.InitDefault(configPath, category, opts...); err != nil {
				return fmt.Errorf("init: %w", err)
			}
			defer zlog.Fini()

			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
				go http.ListenAndServe(metricsAddr, mux)
				fmt.Printf("metrics listening on %s\n", metricsAddr)
			}

			zlog.Info("zlogtail started, watching %s", configPath)
			return zlog.Profile(os.Stdout)
		},
	}

	root.Flags().StringVarP(&configPath, "config", "c", "zlog.conf", "configuration file")
	root.Flags().StringVar(&category, "category", "default", "default category for convenience log calls")
	root.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (empty disables)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
