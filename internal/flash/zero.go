package flash

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/gokrazy/internal/humanize"
	"github.com/gokrazy/internal/progress"
	"golang.org/x/sys/unix"

	"github.com/gokrazy/sdflash/internal/block"
	"github.com/gokrazy/sdflash/internal/exitcode"
)

// zeroSize covers the old partition table and any boot sector remnants at
// the start of the device.
const zeroSize = 10 * 1024 * 1024

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

// zero overwrites the first zeroSize bytes of the device with zeros,
// writing to the device file directly.
func (f *Flasher) zero(ctx context.Context) error {
	if f.DryRun {
		fmt.Fprintf(f.Stdout, "dry-run: would zero the first %s of %s\n", humanize.Bytes(zeroSize), f.Device)
		return nil
	}

	o, err := os.OpenFile(f.Device, os.O_WRONLY, 0)
	if err != nil {
		return exitcode.Errorf(exitcode.Failure, "opening %s: %v", f.Device, err)
	}
	defer o.Close()

	if devsize, err := block.DeviceSize(o.Fd()); err == nil {
		log.Printf("%s holds %s", f.Device, humanize.Bytes(devsize))
	}

	progctx, canc := context.WithCancel(ctx)
	defer canc()
	prog := &progress.Reporter{}
	go prog.Report(progctx)
	prog.SetStatus("zeroing " + f.Device)
	prog.SetTotal(zeroSize)

	start := time.Now()
	if _, err := io.CopyN(io.MultiWriter(o, &progress.Writer{}), zeroReader{}, zeroSize); err != nil {
		return exitcode.Errorf(exitcode.Failure, "zeroing %s: %v", f.Device, err)
	}
	if err := o.Sync(); err != nil {
		return exitcode.Errorf(exitcode.Failure, "syncing %s: %v", f.Device, err)
	}
	canc()
	transferred := progress.Reset()
	fmt.Fprintf(f.Stdout, "\rZeroed the first %s of %s (%v)\n",
		humanize.Bytes(transferred), f.Device, time.Since(start).Round(time.Millisecond))

	unix.Sync()
	return nil
}
