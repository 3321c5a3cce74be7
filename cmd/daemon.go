package cmd

import (
	"fmt"
	"log"
	"strings"

	"BerryBox/config"
	"BerryBox/core/daemon"

	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Probe playback daemon connectivity",
	Long:  `Check that the go-librespot playback daemon is reachable and print its current status.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("Daemon URL: %s\n", cfg.DaemonURL)

		client := daemon.NewClient(cfg)
		if !client.IsConnected() {
			log.Fatalf("Playback daemon not reachable at %s", cfg.DaemonURL)
		}
		fmt.Println("Daemon reachable.")

		status, err := client.Status()
		if err != nil {
			log.Fatalf("Status request failed: %v", err)
		}
		if status == nil {
			fmt.Println("No active playback session.")
			return
		}

		fmt.Printf("Stopped: %v, Paused: %v, Buffering: %v\n", status.Stopped, status.Paused, status.Buffering)
		if status.Track != nil {
			fmt.Printf("Track: %s - %s (%dms / %dms)\n",
				status.Track.Name, strings.Join(status.Track.ArtistNames, ", "),
				status.Track.Position, status.Track.Duration)
		}
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
