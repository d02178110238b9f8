//go:build tamago && arm
// +build tamago,arm

// The dmademo program runs bare metal on the USB armory Mk II and shows the
// order of cache maintenance a driver does around a DMA transfer: clean
// before a device reads a buffer, clean and invalidate before the CPU reads
// what a device wrote.
//
// No real bus master is started. The stand-in device runs on the CPU and
// sees the buffer through the same data cache, so the output is identical
// with or without the maintenance calls; only their placement is shown.
package main

import (
	"bytes"
	"log"
	"os"
	"runtime"
	_ "unsafe"

	_ "github.com/usbarmory/tamago/board/usbarmory/mk2"
	"github.com/usbarmory/tamago/dma"

	"github.com/pboyd/armcache"
)

const (
	ramBase = 0x80000000
	ramSize = 0x10000000 // 256MB

	dmaStart = 0x90000000
	dmaSize  = 0x00100000 // 1MB

	bufSize  = 4096
	bufAlign = 64 // Cortex-A7 line size
)

//go:linkname ramStart runtime.ramStart
var ramStart uint32 = ramBase

//go:linkname ramSizeVar runtime.ramSize
var ramSizeVar uint32 = ramSize

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stdout)
}

// device marks where a bus master would read the request and write its
// reply in place. It is ordinary CPU code and goes through the data cache.
func device(buf []byte) {
	copy(buf, bytes.ToUpper(buf[:bytes.IndexByte(buf, 0)]))
}

func main() {
	log.Printf("%s/%s (%s) • cache maintenance demo", runtime.GOOS, runtime.GOARCH, runtime.Version())

	region, err := dma.NewRegion(dmaStart, dmaSize, false)
	if err != nil {
		log.Fatalf("DMA region: %v", err)
	}

	addr, buf := region.Reserve(bufSize, bufAlign)
	defer region.Release(addr)

	for i := range buf {
		buf[i] = 0
	}
	copy(buf, "ping")

	// A real device reads memory, not the cache, so the request has to be
	// written back first.
	armcache.Clean()
	log.Printf("request at %#x written back", addr)

	device(buf)

	// A real device's reply would be behind stale lines here. Invalidate
	// alone would also throw away anything dirty on the stack.
	armcache.CleanInvalidate()

	log.Printf("reply at %#x: %q", addr, buf[:4])

	// OpInvalidate is left out: the calls in between dirty the stack.
	for _, op := range []armcache.Op{armcache.OpClean, armcache.OpCleanInvalidate} {
		armcache.Maintain(op)
		log.Printf("%s done", op)
	}
}
