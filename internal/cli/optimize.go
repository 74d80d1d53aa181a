package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/AdamLovattDevOps/slow-wifi/internal/experiment"
	"github.com/AdamLovattDevOps/slow-wifi/internal/probe"
	"github.com/AdamLovattDevOps/slow-wifi/internal/report"
	"github.com/AdamLovattDevOps/slow-wifi/internal/sample"
	"github.com/AdamLovattDevOps/slow-wifi/internal/settings"
	apperrors "github.com/AdamLovattDevOps/slow-wifi/pkg/errors"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize [target]",
	Short: "Run the experiment battery and recommend host setting changes",
	Long: `Run the experiment battery and recommend host setting changes.

Measures a baseline, then re-measures with each guarded host setting
disabled on its own, then with all of them disabled together. Every
touched setting is restored afterward, interrupt included. Requires
sudo so settings can be captured and restored.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		target, err := resolveTarget(ctx, args)
		if err != nil {
			return err
		}

		pings, _ := cmd.Flags().GetInt("pings")
		intervalMS, _ := cmd.Flags().GetInt64("interval")
		timeoutMS, _ := cmd.Flags().GetInt64("timeout")
		spikeMS, _ := cmd.Flags().GetFloat64("spike-threshold")
		jitterMS, _ := cmd.Flags().GetFloat64("jitter-threshold")
		strict, _ := cmd.Flags().GetBool("strict")
		outDir, _ := cmd.Flags().GetString("out-dir")

		// Load defaults from DB settings if not overridden
		if !cmd.Flags().Changed("pings") {
			if val, err := appInstance.Storage.GetSetting(ctx, "ping_count"); err == nil {
				if parsed, parseErr := strconv.Atoi(val); parseErr == nil {
					pings = parsed
				}
			}
		}
		if outDir == "" {
			outDir = appInstance.Config.ReportDir
		}

		guard := settings.NewGuard(appInstance.Runner)
		pinger := probe.NewExecPinger(appInstance.Runner, time.Duration(timeoutMS)*time.Millisecond)
		classifier := sample.NewClassifier(spikeMS, jitterMS)

		orch := experiment.NewOrchestrator(guard, pinger, classifier, experiment.Options{
			Pings:    pings,
			Interval: time.Duration(intervalMS) * time.Millisecond,
			Strict:   strict,
			OnProgress: func(label string, done, total int) {
				fmt.Printf("  [%s] %d/%d probes\n", label, done, total)
			},
			OnResult: func(res experiment.Result) {
				fmt.Printf("  [%s] avg %.2fms, jitter %.2fms, spikes %.1f%%\n\n",
					res.SettingName, res.AvgLatencyMs, res.AvgJitterMs, res.SpikePercentage)
			},
		})

		fmt.Printf("Optimizing for %s: %d pings per experiment, %dms apart\n\n", target, pings, intervalMS)

		runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		started := time.Now()
		results, runErr := orch.Run(runCtx, target)
		stop()

		if runErr != nil {
			if errors.Is(runErr, apperrors.ErrPrivilegeRequired) {
				return fmt.Errorf("this command needs sudo to change host settings: %w", runErr)
			}
			if errors.Is(runErr, context.Canceled) {
				fmt.Println("\nInterrupted. Host settings have been restored; no report written.")
				return nil
			}
			return runErr
		}

		printResultsTable(results)

		rep := report.Build(results, report.Meta{
			Target:            target,
			PingsPerTest:      pings,
			IntervalMs:        float64(intervalMS),
			SpikeThresholdMs:  classifier.SpikeThresholdMs,
			JitterThresholdMs: classifier.JitterThresholdMs,
			OriginalSettings:  guard.Captured(),
		})
		printRecommendations(rep)

		summaryPath, rawPath, err := report.Write(ctx, rep, outDir, appInstance.NewReportArchiver(started))
		if err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Printf("\nReport:     %s\n", summaryPath)
		fmt.Printf("Raw series: %s\n", rawPath)
		fmt.Printf("Archived as run %s\n", rep.RunID)
		return nil
	},
}

func printResultsTable(results []experiment.Result) {
	fmt.Println("Results:")
	fmt.Println(strings.Repeat("─", 75))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EXPERIMENT\tVALUE\tAVG\tMIN\tMAX\tJITTER\tSPIKES\tLOSS")
	fmt.Fprintln(w, "----------\t-----\t---\t---\t---\t------\t------\t----")
	for _, res := range results {
		fmt.Fprintf(w, "%s\t%s\t%.2fms\t%.2fms\t%.2fms\t%.2fms\t%.1f%%\t%d/%d\n",
			res.SettingName, res.SettingValue,
			res.AvgLatencyMs, res.MinLatencyMs, res.MaxLatencyMs, res.AvgJitterMs,
			res.SpikePercentage, res.PacketsLost, res.PacketsSent)
	}
	w.Flush()
}

func printRecommendations(rep report.Report) {
	if rep.Analysis != nil {
		fmt.Printf("\nBest avg latency: %s (%.2fms)\n", rep.Analysis.BestAvgLatency.Setting, rep.Analysis.BestAvgLatency.Value)
		fmt.Printf("Best spike rate:  %s (%.1f%%)\n", rep.Analysis.BestSpikeRate.Setting, rep.Analysis.BestSpikeRate.Value)
		fmt.Printf("Best jitter:      %s (%.2fms)\n", rep.Analysis.BestJitter.Setting, rep.Analysis.BestJitter.Value)
	}

	if len(rep.Recommendations) == 0 {
		fmt.Println("\nNo setting showed a meaningful spike reduction over the baseline.")
		return
	}
	fmt.Println("\nRecommendations:")
	for _, rec := range rep.Recommendations {
		fmt.Printf("  • %s: %s (spikes -%s, jitter %s)\n",
			rec.Setting, rec.Action, rec.SpikeReduction, rec.JitterChange)
	}
}

func init() {
	optimizeCmd.Flags().IntP("pings", "p", experiment.DefaultPings, "probes per experiment")
	optimizeCmd.Flags().Int64P("interval", "i", 200, "inter-probe interval in milliseconds")
	optimizeCmd.Flags().Int64P("timeout", "t", 1000, "per-probe timeout in milliseconds")
	optimizeCmd.Flags().Float64("spike-threshold", sample.DefaultSpikeThresholdMs, "latency spike threshold in milliseconds")
	optimizeCmd.Flags().Float64("jitter-threshold", sample.DefaultJitterThresholdMs, "high jitter threshold in milliseconds")
	optimizeCmd.Flags().Bool("strict", false, "abort the run when a setting fails to apply")
	optimizeCmd.Flags().StringP("out-dir", "o", "", "directory for report artifacts (default: data dir)")

	rootCmd.AddCommand(optimizeCmd)
}
