package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ideaforge/internal/cache"
	"ideaforge/internal/config"
	"ideaforge/internal/perception"
	"ideaforge/internal/progress"
	"ideaforge/internal/workflow"
)

var (
	runContext       string
	runTop           int
	runTimeout       time.Duration
	runMaxConcurrent int
	runNoNovelty     bool
	runNoveltyThresh float64
	runPreset        string
	runBaseTemp      float64
	runNoReasoning   bool
	runInference     bool
	runAnalysisType  string
	runUseCache      bool
	runProvider      string
	runJSON          bool
)

var runCmd = &cobra.Command{
	Use:   "run <topic>",
	Short: "Run the refinement pipeline for a topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := args[0]

		opts := config.DefaultOptions()
		opts.NumTopCandidates = runTop
		opts.EnableNoveltyFilter = !runNoNovelty
		opts.NoveltySimilarityThreshold = runNoveltyThresh
		opts.EnhancedReasoning = !runNoReasoning
		opts.LogicalInference = runInference
		opts.AnalysisType = config.AnalysisType(runAnalysisType)
		opts.CacheEnabled = runUseCache
		if runTimeout > 0 {
			opts.Timeout = runTimeout
		}
		if runMaxConcurrent > 0 {
			opts.MaxConcurrentAgents = runMaxConcurrent
		}
		if cmd.Flags().Changed("base-temperature") {
			opts.TemperaturePreset = ""
			opts.BaseTemperature = runBaseTemp
		} else if runPreset != "" {
			opts.TemperaturePreset = runPreset
		}
		fileConfig.ApplyTo(&opts)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		provider, err := buildProvider(cmd, opts.Timeout)
		if err != nil {
			return err
		}

		orcOpts := []workflow.Option{}
		if opts.CacheEnabled {
			c, closeCache, err := buildCache()
			if err != nil {
				return err
			}
			defer closeCache()
			orcOpts = append(orcOpts, workflow.WithCache(c))
		}

		broker := progress.NewBroker(64)
		defer broker.Close()
		if !runJSON {
			events, cancel := broker.Subscribe()
			defer cancel()
			go renderProgress(events)
		}
		orcOpts = append(orcOpts, workflow.WithSink(broker))

		orc := workflow.New(provider, orcOpts...)
		result, err := orc.Run(ctx, topic, runContext, opts)
		if err != nil {
			return err
		}

		if runJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		renderResult(os.Stdout, result)
		return nil
	},
}

// buildProvider resolves provider selection: flag, then config file, then
// environment detection.
func buildProvider(cmd *cobra.Command, timeout time.Duration) (perception.Provider, error) {
	cfg := perception.DetectProvider()
	if fileConfig.Provider != "" {
		cfg.Provider = fileConfig.Provider
	}
	if fileConfig.APIKey != "" && cfg.APIKey == "" {
		cfg.APIKey = fileConfig.APIKey
	}
	if fileConfig.Model != "" {
		cfg.Model = fileConfig.Model
	}
	if fileConfig.BaseURL != "" {
		cfg.BaseURL = fileConfig.BaseURL
	}
	if cmd.Flags().Changed("provider") {
		cfg.Provider = runProvider
	}
	cfg.Timeout = timeout
	return perception.NewProvider(cmd.Context(), cfg)
}

// buildCache returns the configured cache: Redis when cache_url is set,
// in-memory otherwise.
func buildCache() (cache.Cache, func(), error) {
	if fileConfig.CacheURL != "" {
		r, err := cache.NewRedis(fileConfig.CacheURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect cache: %w", err)
		}
		return r, func() { _ = r.Close() }, nil
	}
	m := cache.NewMemory(time.Minute)
	return m, m.Close, nil
}

func init() {
	runCmd.Flags().StringVarP(&runContext, "context", "c", "", "constraints or background for the run")
	runCmd.Flags().IntVar(&runTop, "top", 3, "number of top candidates to refine (1-5)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "global deadline for the run (default 10m)")
	runCmd.Flags().IntVar(&runMaxConcurrent, "max-concurrent", 0, "maximum concurrent provider calls")
	runCmd.Flags().BoolVar(&runNoNovelty, "no-novelty", false, "disable the novelty filter")
	runCmd.Flags().Float64Var(&runNoveltyThresh, "novelty-threshold", 0.8, "similarity threshold for rejecting near-duplicates")
	runCmd.Flags().StringVar(&runPreset, "temperature-preset", "balanced", "conservative | balanced | creative | wild")
	runCmd.Flags().Float64Var(&runBaseTemp, "base-temperature", 0.7, "base temperature (overrides the preset)")
	runCmd.Flags().BoolVar(&runNoReasoning, "no-reasoning", false, "skip the advocate and skeptic phases")
	runCmd.Flags().BoolVar(&runInference, "logical-inference", false, "run logical inference on the top candidates")
	runCmd.Flags().StringVar(&runAnalysisType, "analysis-type", "full", "full | causal | constraints | contradiction | implications")
	runCmd.Flags().BoolVar(&runUseCache, "cache", false, "enable workflow and agent response caching")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "local | gemini (default: auto-detect)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "emit the result as JSON")
	rootCmd.AddCommand(runCmd)
}
