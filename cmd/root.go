// Package cmd assembles the command line interface.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/rainforest-sed/cmd/predict"
	"github.com/tphakala/rainforest-sed/cmd/train"
)

// RootCommand creates and returns the root command.
func RootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rainforest-sed",
		Short: "Sound event detection pipeline for rainforest species",
	}

	setupFlags(rootCmd)

	rootCmd.AddCommand(
		train.Command(),
		predict.Command(),
	)
	return rootCmd
}

// setupFlags defines the global flags and binds them to viper.
func setupFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().String("config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")

	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		cobra.CheckErr(err)
	}
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		cobra.CheckErr(err)
	}
}
