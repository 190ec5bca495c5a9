package cmd

import (
	"strconv"

	"prodplane/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var machineCmd = &cobra.Command{
	Use:   "machine",
	Short: "Control a single machine",
}

var machineStartCmd = &cobra.Command{
	Use:   "start [location] [machine_id]",
	Short: "Start production on an assigned machine",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runMachineCommand(cmd, args, "start")
	},
}

var machinePauseCmd = &cobra.Command{
	Use:   "pause [location] [machine_id]",
	Short: "Pause a running machine without releasing its order",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runMachineCommand(cmd, args, "pause")
	},
}

var machineStopCmd = &cobra.Command{
	Use:   "stop [location] [machine_id]",
	Short: "Stop a machine",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runMachineCommand(cmd, args, "stop")
	},
}

var machineRenameCmd = &cobra.Command{
	Use:   "rename [location] [machine_id] [new_name]",
	Short: "Rename a machine",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		location, id, ok := parseMachineArgs(cmd, args)
		if !ok {
			return
		}

		client := NewFleetClient(viper.GetString("url"))
		resp, err := client.RenameMachine(location, id, args[2])
		if err != nil {
			cmd.Printf("Failed to send command: %v\n", err)
			return
		}
		printCommandResult(cmd, "rename", resp)
	},
}

func runMachineCommand(cmd *cobra.Command, args []string, command string) {
	location, id, ok := parseMachineArgs(cmd, args)
	if !ok {
		return
	}

	client := NewFleetClient(viper.GetString("url"))
	resp, err := client.MachineCommand(location, id, command)
	if err != nil {
		cmd.Printf("Failed to send command: %v\n", err)
		return
	}
	printCommandResult(cmd, command, resp)
}

func parseMachineArgs(cmd *cobra.Command, args []string) (string, int64, bool) {
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		cmd.Printf("Invalid machine id %q\n", args[1])
		return "", 0, false
	}
	return args[0], id, true
}

func printCommandResult(cmd *cobra.Command, command string, resp *api.CommandResponse) {
	if resp.Applied {
		cmd.Printf("%s✓%s Command %q applied\n", colorGreen, colorReset, command)
		return
	}
	cmd.Printf("%s✗%s Command %q not applied: %s\n", colorRed, colorReset, command, resp.Reason)
}

func init() {
	machineCmd.AddCommand(machineStartCmd)
	machineCmd.AddCommand(machinePauseCmd)
	machineCmd.AddCommand(machineStopCmd)
	machineCmd.AddCommand(machineRenameCmd)
	rootCmd.AddCommand(machineCmd)
}
