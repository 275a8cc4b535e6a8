package cmd

import (
	"fmt"

	"github.com/pixperk/pixtracker/client"
	"github.com/spf13/cobra"
)

var (
	scrapeInfoHash string
	scrapeTracker  string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Show seeder and leecher counts for a swarm",
	RunE:  runScrape,
}

func init() {
	scrapeCmd.Flags().StringVarP(&scrapeInfoHash, "hash", "i", "", "Info hash of the torrent (hex, required)")
	scrapeCmd.Flags().StringVarP(&scrapeTracker, "tracker", "t", "http://localhost:8080", "Tracker URL")

	scrapeCmd.MarkFlagRequired("hash")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	infoHash, err := decodeHash(scrapeInfoHash)
	if err != nil {
		return err
	}

	resp, err := client.NewTrackerClient(0).Scrape(cmd.Context(), scrapeTracker, infoHash)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintHeader("SCRAPE")
	PrintSection("Swarm")
	PrintKeyValueHighlight("InfoHash", scrapeInfoHash)
	PrintKeyValue("Seeders", fmt.Sprintf("%d", resp.Complete))
	PrintKeyValue("Leechers", fmt.Sprintf("%d", resp.Incomplete))
	return nil
}
