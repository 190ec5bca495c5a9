package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	logsLocation string
	logsSince    string
	logsLimit    int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show per-unit production records",
	Run: func(cmd *cobra.Command, args []string) {
		client := NewFleetClient(viper.GetString("url"))

		logs, err := client.GetLogs(logsLocation, logsSince, logsLimit)
		if err != nil {
			cmd.Printf("Failed to fetch logs: %v\n", err)
			return
		}

		if len(logs) == 0 {
			cmd.Println("No production records found")
			return
		}

		for _, log := range logs {
			cmd.Printf("%s  %s%-10s%s machine %-3d %s (%s)\n",
				log.Timestamp.Format("2006-01-02 15:04:05"),
				colorDim, log.Location, colorReset,
				log.MachineID, log.WorkOrder, log.PipeSize)
		}
	},
}

func init() {
	logsCmd.Flags().StringVar(&logsLocation, "location", "", "Filter by location")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Only records after this RFC 3339 timestamp")
	logsCmd.Flags().IntVar(&logsLimit, "limit", 0, "Maximum number of records")

	rootCmd.AddCommand(logsCmd)
}
