package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/AdamLovattDevOps/slow-wifi/internal/monitor"
	"github.com/AdamLovattDevOps/slow-wifi/internal/probe"
	"github.com/AdamLovattDevOps/slow-wifi/internal/sample"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor [target]",
	Short: "Continuously probe a target and classify every sample",
	Long: `Continuously probe a target and classify every sample.

Probes until interrupted (Ctrl-C), printing one classified row per probe.
On interrupt the session summary is printed as text and JSON and the run
is archived. Without a target argument the persisted default_target
setting is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		target, err := resolveTarget(ctx, args)
		if err != nil {
			return err
		}

		intervalMS, _ := cmd.Flags().GetInt64("interval")
		timeoutMS, _ := cmd.Flags().GetInt64("timeout")
		spikeMS, _ := cmd.Flags().GetFloat64("spike-threshold")
		jitterMS, _ := cmd.Flags().GetFloat64("jitter-threshold")
		progressEvery, _ := cmd.Flags().GetDuration("progress-every")

		// Load defaults from DB settings if not overridden
		if !cmd.Flags().Changed("interval") {
			if val, err := appInstance.Storage.GetSetting(ctx, "monitor_interval_ms"); err == nil {
				if parsed, parseErr := strconv.ParseInt(val, 10, 64); parseErr == nil {
					intervalMS = parsed
				}
			}
		}
		if !cmd.Flags().Changed("timeout") {
			if val, err := appInstance.Storage.GetSetting(ctx, "probe_timeout_ms"); err == nil {
				if parsed, parseErr := strconv.ParseInt(val, 10, 64); parseErr == nil {
					timeoutMS = parsed
				}
			}
		}

		pinger := probe.NewExecPinger(appInstance.Runner, time.Duration(timeoutMS)*time.Millisecond)
		classifier := sample.NewClassifier(spikeMS, jitterMS)
		mon := monitor.New(target, pinger, classifier, time.Duration(intervalMS)*time.Millisecond)
		mon.OnSample = printSampleRow

		fmt.Printf("Monitoring %s every %dms (Ctrl-C to stop)\n", target, intervalMS)
		fmt.Printf("Thresholds: spike > %.1fms, jitter > %.1fms\n\n", classifier.SpikeThresholdMs, classifier.JitterThresholdMs)

		runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		var reporter *monitor.Reporter
		if progressEvery > 0 {
			reporter, err = monitor.NewReporter(mon)
			if err != nil {
				return err
			}
			if err := reporter.Start(progressEvery, printInterim); err != nil {
				return err
			}
		}

		started := time.Now()
		summary, ok := mon.Run(runCtx)
		stop()
		if reporter != nil {
			if err := reporter.Stop(); err != nil {
				logrus.WithError(err).Warn("failed to stop interim reporter")
			}
		}

		if !ok {
			fmt.Println("\nStopped before any probe was sent.")
			return nil
		}

		printSummary(summary)

		runID := uuid.NewString()
		if err := appInstance.ArchiveMonitorRun(ctx, runID, summary, started, time.Now()); err != nil {
			logrus.WithError(err).Warn("failed to archive monitor run")
		} else {
			fmt.Printf("\nArchived as run %s\n", runID)
		}
		return nil
	},
}

// resolveTarget picks the positional target or falls back to the persisted
// default_target setting.
func resolveTarget(ctx context.Context, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if val, err := appInstance.Storage.GetSetting(ctx, "default_target"); err == nil && val != "" {
		return val, nil
	}
	return "", fmt.Errorf("please specify a target host, or persist one as the default_target setting")
}

func printSampleRow(s sample.Sample) {
	ts := s.Timestamp.Format("15:04:05")
	if !s.Success {
		fmt.Printf("[%s] #%-5d %-10s %-10s %s\n", ts, s.Seq, "timeout", "", s.Status)
		return
	}
	jitter := ""
	if s.Seq > 1 {
		jitter = fmt.Sprintf("Δ%.1fms", s.JitterMs)
	}
	fmt.Printf("[%s] #%-5d %-10s %-10s %s\n", ts, s.Seq, fmt.Sprintf("%.1fms", s.RTTMs), jitter, s.Status)
}

func printInterim(snap monitor.Summary) {
	fmt.Printf("--- interim: %d packets, %.1f%% loss, avg %.1fms, jitter %.1fms ---\n",
		snap.TotalPackets, snap.PacketLossPct, snap.AvgLatencyMs, snap.AvgJitterMs)
}

func printSummary(s monitor.Summary) {
	fmt.Println("\n═══════════════════ SESSION SUMMARY ═══════════════════")
	fmt.Printf("Target:          %s\n", s.Target)
	fmt.Printf("Duration:        %.1fs\n", s.DurationSeconds)
	fmt.Printf("Packets:         %d\n", s.TotalPackets)
	fmt.Printf("Packet loss:     %.2f%%\n", s.PacketLossPct)
	fmt.Printf("Avg latency:     %.2fms\n", s.AvgLatencyMs)
	fmt.Printf("Max latency:     %.2fms\n", s.MaxLatencyMs)
	fmt.Printf("Avg jitter:      %.2fms\n", s.AvgJitterMs)
	fmt.Printf("Stability:       %s\n", s.StabilityScore)
	for _, d := range s.Diagnosis {
		fmt.Printf("  ⚠ %s\n", d)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		logrus.WithError(err).Warn("failed to encode summary")
		return
	}
	fmt.Printf("\n%s\n", data)
}

func init() {
	monitorCmd.Flags().Int64P("interval", "i", 200, "inter-probe interval in milliseconds")
	monitorCmd.Flags().Int64P("timeout", "t", 1000, "per-probe timeout in milliseconds")
	monitorCmd.Flags().Float64("spike-threshold", sample.DefaultSpikeThresholdMs, "latency spike threshold in milliseconds")
	monitorCmd.Flags().Float64("jitter-threshold", sample.DefaultJitterThresholdMs, "high jitter threshold in milliseconds")
	monitorCmd.Flags().Duration("progress-every", 30*time.Second, "interim summary interval (0 disables)")

	rootCmd.AddCommand(monitorCmd)
}
