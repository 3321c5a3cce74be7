package cmd

import (
	"fmt"
	"os"

	"BerryBox/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "berrybox",
	Short: "BerryBox is a kiosk music player backend.",
	Long:  `BerryBox drives a Spotify Connect playback daemon from a touch carousel: it aggregates the daemon's event stream into a now-playing snapshot, persists resume positions per album or playlist, and broadcasts state to connected kiosk clients.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
