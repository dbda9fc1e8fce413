package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/steam-crawler/internal/analysis"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Aggregate signal trends across past crawl files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		inputDir, _ := cmd.Flags().GetString("input-dir")
		if inputDir == "" {
			inputDir = cfg.Output.RawDir
		}
		outPath, _ := cmd.Flags().GetString("out")
		if outPath == "" {
			outPath = filepath.Join(cfg.Output.ProcessedDir, cfg.Analysis.OutputFile)
		}
		minOcc := cfg.Analysis.MinOccurrences
		if cmd.Flags().Changed("min-occurrences") {
			minOcc, _ = cmd.Flags().GetInt("min-occurrences")
		}

		report, err := runAnalyze(inputDir, outPath, minOcc)
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintf(os.Stdout, "Analyzed %d files, %d items written to %s\n", len(report.Files), len(report.Trends), outPath)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("input-dir", "", "directory of crawl files (default output.raw_dir)")
	analyzeCmd.Flags().String("out", "", "report path (default output.processed_dir/analysis.output_file)")
	analyzeCmd.Flags().Int("min-occurrences", 20, "minimum number of files an item must appear in")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(inputDir, outPath string, minOccurrences int) (analysis.Report, error) {
	snaps, err := analysis.Load(inputDir)
	if err != nil {
		return analysis.Report{}, err
	}

	report := analysis.Analyze(snaps, minOccurrences)
	if err := analysis.Write(outPath, report); err != nil {
		return analysis.Report{}, eris.Wrap(err, "analyze")
	}

	zap.L().Info("analysis: report written",
		zap.String("path", outPath),
		zap.Int("files", len(report.Files)),
		zap.Int("items", len(report.Trends)),
	)
	return report, nil
}
