package cmd

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statusCmd = &cobra.Command{
	Use:   "status [location] [machine_id]",
	Short: "Show one machine in detail",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			cmd.Printf("Invalid machine id %q\n", args[1])
			return
		}

		client := NewFleetClient(viper.GetString("url"))
		machine, err := client.GetMachine(args[0], id)
		if err != nil {
			cmd.Printf("Failed to load machine: %v\n", err)
			return
		}

		cmd.Printf("%s %sMachine Details%s\n", statusIcon(machine.Status), colorBold, colorReset)
		cmd.Println("──────────────────────────────")
		cmd.Printf("%sID:%s       %d\n", colorDim, colorReset, machine.ID)
		cmd.Printf("%sName:%s     %s\n", colorDim, colorReset, machine.Name)
		cmd.Printf("%sStatus:%s   %s\n", colorDim, colorReset, colorizeStatus(machine.Status))

		if machine.Job == nil {
			cmd.Printf("%sOrder:%s    -\n", colorDim, colorReset)
			return
		}

		cmd.Printf("%sOrder:%s    %s\n", colorDim, colorReset, machine.Job.WorkOrder)
		if machine.Job.PipeSize != "" {
			cmd.Printf("%sPipe:%s     %s\n", colorDim, colorReset, machine.Job.PipeSize)
		}
		cmd.Printf("%sProgress:%s %d/%d (%.1f%%)\n", colorDim, colorReset,
			machine.Job.ProducedQty, machine.Job.TargetQty, machine.Job.ProgressPercent)
		if machine.Job.RemainingSeconds != nil {
			remaining := time.Duration(*machine.Job.RemainingSeconds * float64(time.Second))
			cmd.Printf("%sRemaining:%s %s\n", colorDim, colorReset, formatDuration(remaining))
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
