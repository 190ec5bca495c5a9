package cmd

import (
	"fmt"
	"time"

	"prodplane/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the whole fleet grouped by location",
	Run: func(cmd *cobra.Command, args []string) {
		client := NewFleetClient(viper.GetString("url"))

		dashboard, err := client.GetDashboard()
		if err != nil {
			cmd.Printf("Failed to load dashboard: %v\n", err)
			return
		}

		for _, location := range dashboard.Locations {
			cmd.Printf("%s%s%s\n", colorBold, location.Name, colorReset)
			cmd.Println("──────────────────────────────")
			for _, m := range location.Machines {
				printMachineLine(cmd, m)
			}
			cmd.Println()
		}
	},
}

func printMachineLine(cmd *cobra.Command, m api.MachineView) {
	cmd.Printf("%s %sMachine %d%s %s (%s)\n",
		statusIcon(m.Status), colorDim, m.ID, colorReset, m.Name, colorizeStatus(m.Status))

	if m.Job != nil {
		cmd.Printf("    %sOrder:%s    %s\n", colorDim, colorReset, m.Job.WorkOrder)
		cmd.Printf("    %sProgress:%s %d/%d (%.1f%%)\n",
			colorDim, colorReset, m.Job.ProducedQty, m.Job.TargetQty, m.Job.ProgressPercent)
		if m.Job.RemainingSeconds != nil {
			remaining := time.Duration(*m.Job.RemainingSeconds * float64(time.Second))
			cmd.Printf("    %sRemaining:%s %s\n", colorDim, colorReset, formatDuration(remaining))
		}
	}
	if m.NextJob != nil {
		cmd.Printf("    %sNext:%s     %s (%d units)\n",
			colorDim, colorReset, m.NextJob.WorkOrder, m.NextJob.TargetQty)
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func statusIcon(status string) string {
	switch status {
	case "running":
		return colorGreen + "▶" + colorReset
	case "completed":
		return colorGreen + "✓" + colorReset
	case "paused":
		return colorYellow + "⏸" + colorReset
	case "stopped":
		return colorRed + "■" + colorReset
	case "free":
		return colorCyan + "◯" + colorReset
	default:
		return "•"
	}
}

func colorizeStatus(status string) string {
	switch status {
	case "running", "completed":
		return colorGreen + status + colorReset
	case "paused":
		return colorYellow + status + colorReset
	case "stopped":
		return colorRed + status + colorReset
	case "free":
		return colorCyan + status + colorReset
	default:
		return status
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
