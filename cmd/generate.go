package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/qagen-cli/internal/dataset"
	"github.com/sells-group/qagen-cli/internal/driver"
	"github.com/sells-group/qagen-cli/internal/generator"
	"github.com/sells-group/qagen-cli/internal/model"
	"github.com/sells-group/qagen-cli/internal/qacache"
	"github.com/sells-group/qagen-cli/internal/validator"
	anthropicpkg "github.com/sells-group/qagen-cli/pkg/anthropic"
)

var (
	genInput       string
	genOutputDir   string
	genCacheDir    string
	genModel       string
	genMinSessions int
	genMaxSessions int
	genThreshold   int
	genMinEvidence int
	genMaxEvidence int
	genEasy        int
	genMedium      int
	genHard        int
	genStep        bool
	genValidate    bool
	genSeed        uint64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate QA items until per-difficulty quotas are met",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		applyGenerateFlags()

		if genEasy == 0 && genMedium == 0 && genHard == 0 {
			return eris.New("no difficulty quota given; use --easy, --medium or --hard")
		}
		if cfg.Generator.MinSessions > cfg.Generator.MaxSessions {
			return eris.Errorf("min_sessions %d exceeds max_sessions %d",
				cfg.Generator.MinSessions, cfg.Generator.MaxSessions)
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
		gen := generator.New(client, cache, cfg.Generator, cfg.Anthropic, genSeed)
		gen.Interactive = genStep

		var val *validator.Validator
		if genValidate || cfg.Validator.Enabled {
			val = validator.New(client, cfg.Anthropic, cfg.Dataset.Domain, cfg.Validator.QueryTimeoutSecs)
		}

		quotas := map[model.Difficulty]int{
			model.DifficultyEasy:   genEasy,
			model.DifficultyMedium: genMedium,
			model.DifficultyHard:   genHard,
		}

		d := driver.New(cache, gen, val, quotas, cfg.Generator.MaxRetries)
		if err := d.Run(ctx, ds); err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.Dataset.OutputDir, 0o755); err != nil {
			return eris.Wrapf(err, "create output dir %s", cfg.Dataset.OutputDir)
		}
		exportFile := filepath.Join(cfg.Dataset.OutputDir, exportName(cfg.Dataset.InputPath))
		n, err := d.Export(exportFile)
		if err != nil {
			return err
		}

		zap.L().Info("generation run complete",
			zap.String("export", exportFile),
			zap.Int("exported", n),
		)
		return nil
	},
}

// applyGenerateFlags lets explicit flags override config file values.
func applyGenerateFlags() {
	if genInput != "" {
		cfg.Dataset.InputPath = genInput
	}
	if genOutputDir != "" {
		cfg.Dataset.OutputDir = genOutputDir
	}
	if genCacheDir != "" {
		cfg.Cache.Dir = genCacheDir
	}
	if genModel != "" {
		cfg.Anthropic.Model = genModel
	}
	if genMinSessions > 0 {
		cfg.Generator.MinSessions = genMinSessions
	}
	if genMaxSessions > 0 {
		cfg.Generator.MaxSessions = genMaxSessions
	}
	if genThreshold > 0 {
		cfg.Generator.SessionThreshold = genThreshold
	}
	if genMinEvidence > 0 {
		cfg.Generator.MinEvidences = genMinEvidence
	}
	if genMaxEvidence > 0 {
		cfg.Generator.MaxEvidences = genMaxEvidence
	}
}

func cachePath() string {
	return filepath.Join(cfg.Cache.Dir, cfg.Cache.File)
}

// exportName derives the export file name from the input corpus name.
func exportName(inputPath string) string {
	base := filepath.Base(inputPath)
	stem := base[:len(base)-len(filepath.Ext(base))]
	if stem == "" {
		stem = "dataset"
	}
	return stem + "_qa.json"
}

func init() {
	generateCmd.Flags().StringVar(&genInput, "input", "", "path to the dataset file")
	generateCmd.Flags().StringVar(&genOutputDir, "output-dir", "", "directory for the export file")
	generateCmd.Flags().StringVar(&genCacheDir, "cache-dir", "", "directory holding the campaign cache")
	generateCmd.Flags().StringVar(&genModel, "model", "", "model name override")
	generateCmd.Flags().IntVar(&genMinSessions, "min-sessions", 0, "minimum sessions per context window")
	generateCmd.Flags().IntVar(&genMaxSessions, "max-sessions", 0, "maximum sessions per context window")
	generateCmd.Flags().IntVar(&genThreshold, "session-threshold", 0, "minimum sessions a question must span")
	generateCmd.Flags().IntVar(&genMinEvidence, "min-evidences", 0, "minimum evidence entries per item")
	generateCmd.Flags().IntVar(&genMaxEvidence, "max-evidences", 0, "maximum evidence entries per item")
	generateCmd.Flags().IntVar(&genEasy, "easy", 0, "easy questions per conversation")
	generateCmd.Flags().IntVar(&genMedium, "medium", 0, "medium questions per conversation")
	generateCmd.Flags().IntVar(&genHard, "hard", 0, "hard questions per conversation")
	generateCmd.Flags().BoolVar(&genStep, "step", false, "review each generated item interactively")
	generateCmd.Flags().BoolVar(&genValidate, "validate", false, "run SQL validation after generation")
	generateCmd.Flags().Uint64Var(&genSeed, "seed", uint64(time.Now().UnixNano()), "random seed for session and few-shot sampling")

	rootCmd.AddCommand(generateCmd)
}
