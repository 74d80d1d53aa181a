package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/AdamLovattDevOps/slow-wifi/internal/app"
)

var (
	appInstance *app.App
	version     = "dev"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "slow-wifi",
	Short: "📡 slow-wifi - a Wi-Fi latency diagnostic and optimizer CLI",
	Long: `📡 slow-wifi - a Wi-Fi latency diagnostic and optimizer CLI

  Diagnose jittery, spiky Wi-Fi from your terminal and find out which
  host settings are making it worse.

  Quick start:
    slow-wifi monitor 192.168.0.1
    sudo slow-wifi optimize 192.168.0.1
    slow-wifi history

  Core features:
    • Continuous ping monitoring with live jitter/spike classification
    • Experiment battery that toggles host settings one at a time
    • Guaranteed restoration of every touched setting, even on Ctrl-C
    • JSON reports and a local run archive`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.WarnLevel)
		}

		var err error
		appInstance, err = app.New()
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if appInstance != nil {
			return appInstance.Close()
		}
		return nil
	},
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("📡 slow-wifi %s\n", version)
	},
}
