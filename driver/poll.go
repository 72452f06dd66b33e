// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package driver

import (
	"context"

	"golang.org/x/time/rate"

	"bcm43430/chipregs"
	"bcm43430/sdpcm"
)

// defaultPollRate bounds how often PollEvents re-checks the interrupt
// status register when no event is pending. The source's own busy-wait
// loop yields the single bare-metal task between polls; this module runs
// hosted, potentially alongside other processes, so it rate-limits instead
// of spinning unbounded.
const defaultPollRate = 500 // polls per second

// EventHandler is called once per event frame PollEvents decodes.
type EventHandler func(sdpcm.Event)

// PollEvents polls the radio function for event frames until ctx is
// cancelled, invoking handler for each one decoded. Frames that fail the
// SDPCM length invariant or carry a non-BRCM ethertype are silently
// skipped, per the event error-handling policy.
func (d *Driver) PollEvents(ctx context.Context, handler EventHandler) error {
	limiter := rate.NewLimiter(rate.Limit(defaultPollRate), 1)
	buf := make([]byte, 512)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		status, ok := d.win.Read32(chipregs.SBIntStatusReg)
		if !ok || status&0xff == 0 {
			continue
		}
		d.win.Write32(chipregs.SBIntStatusReg, status&0xff)

		ev, _, ok := sdpcm.GetEvent(d.link, buf)
		if !ok {
			continue
		}

		handler(ev)
	}
}
