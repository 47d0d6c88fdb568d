// Command zlog-chk-conf validates a zlog configuration file without
// starting any logging: it parses and builds a Configuration exactly the
// way zlog.Init would, and reports either success or the error. An error
// in a [rules] entry carries that entry's line number within the [rules]
// section; no column is reported. It stands in for the original
// library's zlog-chk-conf utility
// (original_source/src, a standalone validator shipped alongside the
// library itself).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	zlog "github.com/zlog-go/zlog"
	"github.com/zlog-go/zlog/internal/confdsl"
)

func main() {
	var quiet bool

	root := &cobra.Command{
		Use:   "zlog-chk-conf <config-file>",
		Short: "Validate a zlog configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			doc, err := confdsl.Parse(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			cfg, err := zlog.BuildConfiguration(path, doc)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			if !quiet {
				fmt.Printf("%s: OK, %d format(s), %d rule(s)\n", path, len(cfg.Formats), len(cfg.Rules))
			}
			return nil
		},
	}
	root.Flags().BoolVarP(&quiet, "quiet", "q", false, "print nothing on success")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
