// ABOUTME: Reply text formatting for torrent listings
// ABOUTME: One formatter per listing class, mirroring what each status makes relevant

package dialog

import (
	"fmt"
	"time"

	"torrentbutler/internal/transmission"
)

const mib = 1024 * 1024

// formatItem renders one torrent for the given listing class. Downloading
// shows transfer rates and ETA, seeding shows upload and ratio, paused
// shows completion and status.
func formatItem(class transmission.StatusClass, it transmission.Item) string {
	added := it.AddedAt.Format("2006-01-02 15:04")

	switch class {
	case transmission.ClassDownloading:
		return fmt.Sprintf("%d. %s (added %s):\n%.2f%% - ↓ %.3fMB/s ↑ %.3fMB/s - peers: %d - eta: %s",
			it.ID, it.Name, added,
			it.Progress*100,
			float64(it.DownloadRate)/mib,
			float64(it.UploadRate)/mib,
			it.Peers,
			formatETA(it))
	case transmission.ClassSeeding:
		return fmt.Sprintf("%d. %s (added %s):\n↑ %.3fMB/s - peers: %d - ratio: %.2f",
			it.ID, it.Name, added,
			float64(it.UploadRate)/mib,
			it.Peers,
			it.Ratio)
	default:
		return fmt.Sprintf("%d. %s (added %s):\n%.0f%% - status: %s",
			it.ID, it.Name, added,
			it.Progress*100,
			it.Status)
	}
}

// formatETA renders the remaining time, or "N/A" when the daemon does not
// know it. An unknown ETA is a normal condition, not a failure.
func formatETA(it transmission.Item) string {
	if !it.ETAKnown() {
		return "N/A"
	}
	d := time.Duration(it.ETA) * time.Second
	return d.Truncate(time.Second).String()
}
