// Binary sdflash writes a built Raspberry Pi image (kernel, firmware and
// root filesystem) onto an SD card.
package main

import (
	"os"

	"github.com/gokrazy/sdflash/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
