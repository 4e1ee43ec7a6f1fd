package flash

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/gokrazy/sdflash/internal/artifacts"
	"github.com/gokrazy/sdflash/internal/block"
)

// ReportFile is written into the artifacts directory after a successful
// flash.
const ReportFile = "flash-report.json"

// Report records what ended up on the card.
type Report struct {
	Device        string               `json:"device"`
	BootPartition string               `json:"boot_partition"`
	RootPartition string               `json:"root_partition"`
	BootSizeMiB   int                  `json:"boot_size_mib"`
	Artifacts     []artifacts.FileInfo `json:"artifacts"`
	Duration      string               `json:"duration"`
	FinishedAt    time.Time            `json:"finished_at"`
}

// writeReport checksums the artifacts and writes the report atomically, so
// a half-written report never shadows an earlier complete one.
func (f *Flasher) writeReport(ctx context.Context, start time.Time) error {
	infos, err := f.Artifacts.Describe(ctx)
	if err != nil {
		return err
	}
	report := Report{
		Device:        f.Device,
		BootPartition: block.PartitionDevice(f.Device, 1),
		RootPartition: block.PartitionDevice(f.Device, 2),
		BootSizeMiB:   f.Cfg.BootSizeMiB,
		Artifacts:     infos,
		Duration:      time.Since(start).Round(time.Millisecond).String(),
		FinishedAt:    time.Now(),
	}
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(filepath.Join(f.Artifacts.Dir, ReportFile), append(b, '\n'), 0644)
}
