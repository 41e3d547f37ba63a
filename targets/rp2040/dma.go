//go:build rp2040 || rp2350

package main

import "sync"

// RP2040 has 12 DMA channels shared by the whole chip; stepper PIO
// streams compete with any other firmware subsystem that might claim
// one. This is a simple bitmask claim/release, not a full DMA
// configuration layer — the PIO driver here feeds the FIFO from the
// claimed channel's goroutine-equivalent busy loop rather than
// programming the DMA peripheral's read/write-increment registers,
// since TinyGo's machine package does not yet expose RP2040 DMA.
const dmaChannelCount = 12

var (
	dmaMu     sync.Mutex
	dmaClaims [dmaChannelCount]bool
)

func claimDMAChannel() (uint8, bool) {
	dmaMu.Lock()
	defer dmaMu.Unlock()
	for i := 0; i < dmaChannelCount; i++ {
		if !dmaClaims[i] {
			dmaClaims[i] = true
			return uint8(i), true
		}
	}
	return 0, false
}

func releaseDMAChannel(ch uint8) {
	dmaMu.Lock()
	defer dmaMu.Unlock()
	dmaClaims[ch] = false
}
