package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/qagen-cli/internal/model"
	"github.com/sells-group/qagen-cli/internal/qacache"
)

var statsCacheDir string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print per-difficulty and per-status counts of the cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		if statsCacheDir != "" {
			cfg.Cache.Dir = statsCacheDir
		}

		cache, err := qacache.New(cachePath())
		if err != nil {
			return err
		}

		fmt.Printf("cache: %s (%d items)\n", cache.Path(), cache.Len())
		for _, difficulty := range []model.Difficulty{model.DifficultyHard, model.DifficultyMedium, model.DifficultyEasy} {
			liked := len(cache.Liked(difficulty))
			disliked := len(cache.Disliked(difficulty))
			exportable := 0
			matched := 0
			for _, item := range cache.Exportable() {
				if item.Difficulty != difficulty {
					continue
				}
				exportable++
				if item.SQLInfo.Status == model.ValidationMatch {
					matched++
				}
			}
			fmt.Printf("%-7s exportable=%-4d liked=%-4d disliked=%-4d validated_match=%d\n",
				difficulty, exportable, liked, disliked, matched)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsCacheDir, "cache-dir", "", "directory holding the campaign cache")

	rootCmd.AddCommand(statsCmd)
}
