package output_test

import (
	"os"
	"testing"

	"github.com/jsprogd/jsprogd/internal/output"
)

// TestOpenAndEmit exercises the real /dev/uinput node. It is skipped
// outside environments that have the uinput kernel module loaded and
// writable (most CI containers), matching how the rest of the ecosystem
// tests uinput-backed code.
func TestOpenAndEmit(t *testing.T) {
	if _, err := os.Stat(output.DevicePath); err != nil {
		t.Skip("no /dev/uinput available in this environment")
	}

	dev, err := output.Open(nil, "", []uint16{0x1e /* KEY_A */})
	if err != nil {
		t.Skipf("cannot open uinput device: %v", err)
	}
	defer dev.Close()

	dev.Press(0x1e)
	dev.Release(0x1e)
	dev.Synchronize()
	dev.Synchronize() // idempotent when dirty flag is already clear
}
