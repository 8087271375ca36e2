package keyval

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/disk"
	"github.com/sirupsen/logrus"
)

// checkFreeSpace logs the disk usage of the filesystem holding path and fails
// when less than minimumFreeGB is available. The path is created first so the
// usage query works on a fresh data directory.
func checkFreeSpace(path string, minimumFreeGB uint, log *logrus.Logger) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}

	usage, err := disk.Usage(path)
	if err != nil {
		log.WithFields(logrus.Fields{
			"path": path,
		}).Errorf("Error retrieving disk usage stats: %v", err)
		return err
	}

	freeGB := float64(usage.Free) / 1e9
	log.WithFields(logrus.Fields{
		"Path":       path,
		"Total (GB)": fmt.Sprintf("%.2f", float64(usage.Total)/1e9),
		"Used (GB)":  fmt.Sprintf("%.2f", float64(usage.Used)/1e9),
		"Free (GB)":  fmt.Sprintf("%.2f", freeGB),
	}).Info("Disk usage")

	if minimumFreeGB > 0 && freeGB < float64(minimumFreeGB) {
		return fmt.Errorf("not enough free space at %s: %.2f GB free, %d GB required", path, freeGB, minimumFreeGB)
	}
	return nil
}
