package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/AdamLovattDevOps/slow-wifi/internal/storage/models"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List archived runs, or show one run's experiments",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if len(args) == 1 {
			return showRun(ctx, args[0])
		}

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := appInstance.Storage.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No archived runs yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tKIND\tTARGET\tDURATION\tID")
		fmt.Fprintln(w, "-------\t----\t------\t--------\t--")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				run.StartedAt.Local().Format("2006-01-02 15:04:05"),
				run.Kind, run.Target,
				run.FinishedAt.Sub(run.StartedAt).Round(time.Second),
				run.ID)
		}
		return w.Flush()
	},
}

func showRun(ctx context.Context, id string) error {
	run, err := appInstance.Storage.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("run not found: %s", id)
	}

	fmt.Printf("Run %s (%s against %s)\n", run.ID, run.Kind, run.Target)
	fmt.Printf("Started %s, finished %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"),
		run.FinishedAt.Local().Format("15:04:05"))
	fmt.Println(strings.Repeat("═", 60))

	if run.Kind == models.KindOptimize {
		experiments, err := appInstance.Storage.GetExperiments(ctx, run.ID)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "EXPERIMENT\tVALUE\tAVG\tJITTER\tSPIKES\tLOSS")
		fmt.Fprintln(w, "----------\t-----\t---\t------\t------\t----")
		for _, exp := range experiments {
			fmt.Fprintf(w, "%s\t%s\t%.2fms\t%.2fms\t%.1f%%\t%d/%d\n",
				exp.SettingName, exp.SettingValue,
				exp.AvgLatencyMs, exp.AvgJitterMs, exp.SpikePercentage,
				exp.PacketsLost, exp.PacketsSent)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Printf("\n%s\n", run.Summary)
	return nil
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "number of runs to list")

	rootCmd.AddCommand(historyCmd)
}
