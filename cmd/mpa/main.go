// Package main provides the mpa stage-runner CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/negvet/model-preparation-algorithm/internal/backend/webgpu"
	"github.com/negvet/model-preparation-algorithm/internal/config"
	"github.com/negvet/model-preparation-algorithm/internal/logging"
	"github.com/negvet/model-preparation-algorithm/internal/stage"
)

const version = "v0.1.0"

var (
	// Global flags
	verbose bool

	// Infer flags
	modelPath    string
	dataPath     string
	checkpoint   string
	workDir      string
	mode         string
	accelerator  string
	devices      []int
	dumpFeatures bool
	dumpSaliency bool
	evaluation   bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mpa",
	Short: "Model preparation algorithms for classification models",
	Long: `mpa runs recipe stages for preparing classification models.

Stages are registered by name and gated on the recipe mode: a stage
whose allowed modes do not include the requested mode skips the run.
The infer stage performs a forward-only pass collecting per-sample
class probabilities, optionally instruments the backbone for feature
vectors and saliency maps, and hosts the task-adaptation pre-stage
used by class-incremental training recipes.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.Init(verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var inferCmd = &cobra.Command{
	Use:   "infer",
	Short: "Run the inference stage",
	Long: `Runs the registered infer stage against a model and data config.

The stage result is summarized as JSON on stdout. Normal runs persist
the prediction rows under the work dir; task-adaptation pre-stage runs
persist the soft-label artifact instead.`,
	RunE: runInfer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mpa %s\n", version)
	},
}

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "List registered stages",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range stage.Names() {
			fmt.Println(name)
		}
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List compute devices",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("cpu: available")
		adapters, err := webgpu.ListAdapters()
		if err != nil {
			fmt.Println("webgpu: unavailable")
			return
		}
		for i, info := range adapters {
			fmt.Printf("webgpu:%d %s %s (%v)\n", i, info.Vendor, info.Device, info.BackendType)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	inferCmd.Flags().StringVar(&modelPath, "model", "", "Model config YAML (required)")
	inferCmd.Flags().StringVar(&dataPath, "data", "", "Data config YAML (required)")
	inferCmd.Flags().StringVar(&checkpoint, "checkpoint", "", "Checkpoint to load before the run")
	inferCmd.Flags().StringVar(&workDir, "work-dir", "", "Run directory (or set MPA_WORK_DIR; default: work_dirs/<run-id>)")
	inferCmd.Flags().StringVar(&mode, "mode", "train", "Recipe mode (or set MPA_MODE)")
	inferCmd.Flags().StringVar(&accelerator, "accelerator", "auto", "Compute backend: cpu, webgpu or auto (or set MPA_ACCELERATOR)")
	inferCmd.Flags().IntSliceVar(&devices, "devices", nil, "Device ordinals; only the first is used")
	inferCmd.Flags().BoolVar(&dumpFeatures, "dump-features", false, "Collect backbone feature vectors")
	inferCmd.Flags().BoolVar(&dumpSaliency, "dump-saliency-map", false, "Collect backbone saliency maps")
	inferCmd.Flags().BoolVar(&evaluation, "evaluation", false, "Mark the run as an evaluation pass")
	_ = inferCmd.MarkFlagRequired("model")
	_ = inferCmd.MarkFlagRequired("data")

	rootCmd.AddCommand(inferCmd)
	rootCmd.AddCommand(stagesCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	// .env values act as defaults; explicit flags still win.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runInfer(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	modelCfg, err := config.LoadModelConfig(modelPath)
	if err != nil {
		return err
	}
	dataCfg, err := config.LoadDataConfig(dataPath)
	if err != nil {
		return err
	}
	opts := config.Options{
		Mode:            mode,
		DumpFeatures:    dumpFeatures,
		DumpSaliencyMap: dumpSaliency,
		Evaluation:      evaluation,
		WorkDir:         workDir,
		Accelerator:     accelerator,
		Devices:         devices,
	}
	opts.ApplyEnvOverrides()

	runner, err := stage.Build("infer", logger, reportBatch)
	if err != nil {
		return err
	}
	result, err := runner.Run(ctx, *modelCfg, checkpoint, *dataCfg, opts)
	if err != nil {
		return err
	}
	return writeSummary(result)
}

// reportBatch draws a one-line progress indicator on stderr, clear of
// the JSON summary on stdout.
func reportBatch(done, total int) {
	fmt.Fprintf(os.Stderr, "\rbatch %d/%d", done, total)
	if done == total {
		fmt.Fprintln(os.Stderr)
	}
}

func writeSummary(result stage.Result) error {
	summary := map[string]any{"stage": "infer"}

	switch r := result.(type) {
	case stage.Skipped:
		summary["result"] = "skipped"
		summary["mode"] = r.Mode
	case stage.PreStageResult:
		summary["result"] = "pre_stage"
		summary["pre_stage_path"] = r.Path
	case stage.InferenceResult:
		path, err := savePredictions(r.WorkDir, r.Outputs)
		if err != nil {
			return err
		}
		summary["result"] = "inference"
		summary["samples"] = len(r.Outputs.Predictions)
		summary["feature_vectors"] = countNonNil(r.Outputs.FeatureVectors)
		summary["saliency_maps"] = countNonNil(r.Outputs.SaliencyMaps)
		summary["predictions_path"] = path
	default:
		return fmt.Errorf("unknown stage result %T", result)
	}

	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(payload))
	return nil
}

func savePredictions(dir string, outputs *stage.Outputs) (string, error) {
	payload, err := json.MarshalIndent(outputs.Predictions, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode predictions: %w", err)
	}
	path := filepath.Join(dir, "predictions.json")
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return "", fmt.Errorf("failed to write predictions: %w", err)
	}
	return path, nil
}

func countNonNil[T any](items []*T) int {
	count := 0
	for _, item := range items {
		if item != nil {
			count++
		}
	}
	return count
}
