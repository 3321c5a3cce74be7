package cmd

import (
	"BerryBox/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the BerryBox server",
	Long:  `Start the BerryBox HTTP server: REST control surface, WebSocket state broadcast, and the connection to the playback daemon.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
