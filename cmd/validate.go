package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/qagen-cli/internal/dataset"
	"github.com/sells-group/qagen-cli/internal/driver"
	"github.com/sells-group/qagen-cli/internal/model"
	"github.com/sells-group/qagen-cli/internal/qacache"
	"github.com/sells-group/qagen-cli/internal/validator"
	anthropicpkg "github.com/sells-group/qagen-cli/pkg/anthropic"
)

var (
	valInput    string
	valCacheDir string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Re-run SQL validation over an existing cache",
	Long:  "Validates every exportable cached item whose validation status is not already match or skipped. Safe to re-run after interruption.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if valInput != "" {
			cfg.Dataset.InputPath = valInput
		}
		if valCacheDir != "" {
			cfg.Cache.Dir = valCacheDir
		}

		ds, err := dataset.Load(cfg.Dataset.InputPath)
		if err != nil {
			return err
		}

		cache, err := qacache.New(cachePath())
		if err != nil {
			return err
		}

		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		val := validator.New(client, cfg.Anthropic, cfg.Dataset.Domain, cfg.Validator.QueryTimeoutSecs)

		// No generation quotas: the driver only runs the validation pass.
		d := driver.New(cache, nil, val, map[model.Difficulty]int{}, cfg.Generator.MaxRetries)
		if err := d.Run(ctx, ds); err != nil {
			return err
		}

		zap.L().Info("validation run complete", zap.Int("cached_items", cache.Len()))
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&valInput, "input", "", "path to the dataset file")
	validateCmd.Flags().StringVar(&valCacheDir, "cache-dir", "", "directory holding the campaign cache")

	rootCmd.AddCommand(validateCmd)
}
