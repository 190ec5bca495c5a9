package cmd

import (
	"prodplane/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	scheduleWorkOrder string
	scheduleLocation  string
	schedulePipeSize  string
	scheduleQty       int64
	schedulePriority  int
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Queue an internal work order",
	Long: `Queue an internally originated work order. The assignment loop picks
it up on its next pass and places it on a free machine at the given
location, competing with external orders by priority.`,
	Run: func(cmd *cobra.Command, args []string) {
		if scheduleWorkOrder == "" || scheduleLocation == "" {
			cmd.Println("Both --work-order and --location are required")
			return
		}
		if scheduleQty <= 0 {
			cmd.Println("--qty must be positive")
			return
		}

		client := NewFleetClient(viper.GetString("url"))
		resp, err := client.ScheduleJob(api.ScheduleJobRequest{
			WorkOrder: scheduleWorkOrder,
			Location:  scheduleLocation,
			PipeSize:  schedulePipeSize,
			Qty:       scheduleQty,
			Priority:  schedulePriority,
		})
		if err != nil {
			cmd.Printf("Failed to schedule job: %v\n", err)
			return
		}

		cmd.Printf("%s✓%s Job queued with id %d\n", colorGreen, colorReset, resp.JobID)
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleWorkOrder, "work-order", "", "Work order identifier (required)")
	scheduleCmd.Flags().StringVar(&scheduleLocation, "location", "", "Target location (required)")
	scheduleCmd.Flags().StringVar(&schedulePipeSize, "pipe-size", "", "Preferred pipe size")
	scheduleCmd.Flags().Int64Var(&scheduleQty, "qty", 0, "Quantity to produce (required)")
	scheduleCmd.Flags().IntVar(&schedulePriority, "priority", 0, "Assignment priority, higher wins")

	rootCmd.AddCommand(scheduleCmd)
}
