package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/qagen-cli/internal/driver"
	"github.com/sells-group/qagen-cli/internal/model"
	"github.com/sells-group/qagen-cli/internal/qacache"
)

var (
	expCacheDir string
	expOut      string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all liked and generated items from the cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		if expCacheDir != "" {
			cfg.Cache.Dir = expCacheDir
		}

		cache, err := qacache.New(cachePath())
		if err != nil {
			return err
		}

		out := expOut
		if out == "" {
			if err := os.MkdirAll(cfg.Dataset.OutputDir, 0o755); err != nil {
				return eris.Wrapf(err, "create output dir %s", cfg.Dataset.OutputDir)
			}
			out = filepath.Join(cfg.Dataset.OutputDir, "qa_export.json")
		}

		d := driver.New(cache, nil, nil, map[model.Difficulty]int{}, 0)
		n, err := d.Export(out)
		if err != nil {
			return err
		}

		zap.L().Info("export complete", zap.String("path", out), zap.Int("items", n))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&expCacheDir, "cache-dir", "", "directory holding the campaign cache")
	exportCmd.Flags().StringVar(&expOut, "out", "", "export file path (default <output-dir>/qa_export.json)")

	rootCmd.AddCommand(exportCmd)
}
