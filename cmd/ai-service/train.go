package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/edustack/ai-service/internal/config"
	"github.com/edustack/ai-service/internal/training"
	"github.com/edustack/ai-service/internal/utils"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a grade prediction model from a CSV dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		csvPath, _ := cmd.Flags().GetString("csv")
		sep, _ := cmd.Flags().GetString("sep")
		out, _ := cmd.Flags().GetString("out")
		name, _ := cmd.Flags().GetString("name")
		modelVersion, _ := cmd.Flags().GetString("version")
		nEstimators, _ := cmd.Flags().GetInt("n-estimators")
		maxDepth, _ := cmd.Flags().GetInt("max-depth")
		seed, _ := cmd.Flags().GetInt64("seed")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

		if out == "" {
			out = cfg.Models.Dir
		}
		if modelVersion == "" {
			modelVersion = cfg.Models.DefaultVersion
		}
		separator := ';'
		if sep != "" {
			separator = rune(sep[0])
		}

		result, err := training.Run(logger, training.Options{
			CSVPath:     csvPath,
			Separator:   separator,
			OutDir:      out,
			MetricsDir:  cfg.Models.MetricsDir,
			ModelName:   name,
			Version:     modelVersion,
			NEstimators: nEstimators,
			MaxDepth:    maxDepth,
			Seed:        seed,
		})
		if err != nil {
			logger.Error("training failed", slog.Any("error", err))
			return err
		}

		fmt.Printf("trained %s %s: r2=%.4f mae=%.4f (train=%d test=%d, %d features)\n",
			name, modelVersion, result.Metrics.R2, result.Metrics.MAE,
			result.NTrain, result.NTest, len(result.FeatureOrder.AllFeatures))
		return nil
	},
}

func init() {
	trainCmd.Flags().String("csv", "", "path to the CSV dataset (required)")
	trainCmd.Flags().String("sep", ";", "CSV field separator")
	trainCmd.Flags().String("out", "", "output directory for model artifacts (default: configured model dir)")
	trainCmd.Flags().String("name", "grades", "model name")
	trainCmd.Flags().String("version", "", "model version (default: configured model version)")
	trainCmd.Flags().Int("n-estimators", 100, "number of trees")
	trainCmd.Flags().Int("max-depth", 3, "maximum tree depth")
	trainCmd.Flags().Int64("seed", 42, "random seed for the train/test split and bootstrap sampling")
	_ = trainCmd.MarkFlagRequired("csv")

	rootCmd.AddCommand(trainCmd)
}
