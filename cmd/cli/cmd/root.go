package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "prodctl",
	Short: "Prodctl is a command line tool for operating the prodplane fleet",
	Long: `prodctl is the command-line interface for the prodplane production
fleet controller.

Prodplane keeps a fixed fleet of production machines in sync with an
external order source: pending work orders are matched to free machines,
running machines advance their produced counters in real time, and
threshold alerts fire as orders near completion.

Common workflows:

  View the whole fleet:
    prodctl dashboard

  Inspect one machine:
    prodctl status Modan 3

  Control a machine:
    prodctl machine start Modan 3
    prodctl machine pause Modan 3
    prodctl machine rename Modan 3 "extruder-east"

  Queue an internal work order:
    prodctl schedule --work-order "JOB-7" --location Modan --qty 50

  Review production records:
    prodctl logs --location Modan --limit 100

Configuration:
  Set the API endpoint via environment variables or a config file:
    PRODPLANE_URL    API endpoint (default: http://localhost:6161)`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".prodctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".prodctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "PRODPLANE_VARNAME"
	viper.SetEnvPrefix("PRODPLANE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.prodctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:6161", "Prodplane Controller URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
}
