package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/pixperk/pixtracker/client"
	"github.com/spf13/cobra"
)

var (
	announceInfoHash string
	announcePort     int
	announceTracker  string
	announceLeft     int64
	announceEvent    string
)

var announceCmd = &cobra.Command{
	Use:   "announce",
	Short: "Send one announce to a tracker",
	Long:  `Announce this host to a tracker and print the peers and swarm counts it hands back.`,
	RunE:  runAnnounce,
}

func init() {
	announceCmd.Flags().StringVarP(&announceInfoHash, "hash", "i", "", "Info hash of the torrent (hex, required)")
	announceCmd.Flags().IntVarP(&announcePort, "port", "p", 6881, "Port peers should connect to")
	announceCmd.Flags().StringVarP(&announceTracker, "tracker", "t", "http://localhost:8080", "Tracker URL")
	announceCmd.Flags().Int64VarP(&announceLeft, "left", "l", 1, "Bytes left to download (0 when seeding)")
	announceCmd.Flags().StringVarP(&announceEvent, "event", "e", "", "Event: started, stopped, completed or empty")

	announceCmd.MarkFlagRequired("hash")
	rootCmd.AddCommand(announceCmd)
}

func decodeHash(s string) ([]byte, error) {
	hash, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid info hash: %w", err)
	}
	if len(hash) == 0 {
		return nil, fmt.Errorf("info hash is empty")
	}
	return hash, nil
}

func runAnnounce(cmd *cobra.Command, args []string) error {
	switch announceEvent {
	case "", "started", "stopped", "completed":
	default:
		return fmt.Errorf("unknown event %q", announceEvent)
	}

	infoHash, err := decodeHash(announceInfoHash)
	if err != nil {
		return err
	}

	c := client.NewTrackerClient(announcePort)
	resp, err := c.Announce(cmd.Context(), announceTracker, infoHash, announceLeft, announceEvent)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintHeader("ANNOUNCE")
	PrintSection("Swarm")
	PrintKeyValueHighlight("InfoHash", announceInfoHash)
	PrintKeyValue("Tracker", announceTracker)

	if resp == nil {
		PrintInfo("Tracker acknowledged, no peers sent")
		return nil
	}

	PrintKeyValue("Interval", fmt.Sprintf("%ds", resp.Interval))
	PrintKeyValue("Seeders", fmt.Sprintf("%d", resp.Complete))
	PrintKeyValue("Leechers", fmt.Sprintf("%d", resp.Incomplete))

	PrintSection(fmt.Sprintf("Peers (%d)", len(resp.Peers)))
	PrintPeers(resp.Peers)
	return nil
}
