package dmac

// Channel represents one independently configurable transfer engine within
// the controller.
type Channel struct {
	c     *Controller
	index uint8
}

// Index returns the channel's index within the controller.
func (ch Channel) Index() uint8 { return ch.index }

// Controller returns the controller this channel belongs to.
func (ch Channel) Controller() *Controller { return ch.c }

// IsValid returns true if the handle refers to a channel on a constructed
// controller.
func (ch Channel) IsValid() bool {
	return ch.c != nil && ch.index < ch.c.layout.numChannels
}

func (ch Channel) regs() *chanRegs { return &ch.c.layout.chans[ch.index] }

// IsClaimed returns true if the channel is claimed by other code and should
// not be used.
func (ch Channel) IsClaimed() bool {
	ch.c.mu.Lock()
	defer ch.c.mu.Unlock()
	return ch.c.claimedMask&(1<<ch.index) != 0
}

// TryClaim attempts to claim the channel for exclusive use by the caller
// and reports whether it succeeded. Regardless of the result the channel is
// claimed after the call ends.
func (ch Channel) TryClaim() bool {
	ch.c.mu.Lock()
	defer ch.c.mu.Unlock()
	if ch.c.claimedMask&(1<<ch.index) != 0 {
		return false
	}
	ch.c.claimedMask |= 1 << ch.index
	return true
}

// Unclaim releases the channel for use by other code.
func (ch Channel) Unclaim() {
	ch.c.mu.Lock()
	defer ch.c.mu.Unlock()
	ch.c.claimedMask &^= 1 << ch.index
}

// Configure programs a transfer and activates the channel.
//
// periphAddr and memAddr are bus addresses; count is in transfer units, not
// bytes. The caller must keep the memory buffer valid for the whole
// transfer lifetime.
//
// The register sequence follows the order the hardware requires: the mode
// fields are read-only while the channel is enabled, so a running channel
// is stopped first; addresses and count are written next; the mode word is
// written with the enable bit clear; enabling is the final, separate
// access. If circular mode is requested the memory-to-memory bit is cleared
// beforehand, since the controller rejects the combination.
//
// Requesting Circular together with MemToMem returns ErrCircularMemToMem
// before any register is written. A channel stopped by a transfer error
// cannot be re-enabled until the error flag is cleared with ClearFlag.
func (ch Channel) Configure(periphAddr, memAddr uint32, count uint16, dir Direction, cfg ChannelConfig) error {
	if cfg.Circular && cfg.MemToMem {
		return ErrCircularMemToMem
	}
	c := ch.c
	c.mu.Lock()
	defer c.mu.Unlock()
	r := ch.regs()

	if err := c.disableAndWait(r.cr); err != nil {
		return err
	}

	c.bus.Write32(r.par, periphAddr)
	c.bus.Write32(r.mar, memAddr)
	c.bus.Write32(r.ndtr, uint32(count))

	if cfg.Circular {
		// Ordering matters: MEM2MEM must be gone before CIRC is set.
		c.bus.Write32(r.cr, c.bus.Read32(r.cr)&^uint32(crMEM2MEM))
	}

	cr := modeFor(c.bus.Read32(r.cr), dir, cfg)
	c.bus.Write32(r.cr, cr)
	// Activate. From here the controller serves peripheral requests, or
	// starts the memory-to-memory block, on its own.
	c.bus.Write32(r.cr, cr|crEN)
	return nil
}

// Stop clears the channel's enable bit and nothing else: it requests
// cessation but does not wait for it. The controller finishes or aborts its
// current bus transaction before honoring the disable, and cannot resume an
// aborted transfer. Callers must await a transfer-complete or
// transfer-error flag before treating the channel as idle, and must
// reconfigure, not merely re-enable, before reuse.
func (ch Channel) Stop() {
	c := ch.c
	c.mu.Lock()
	defer c.mu.Unlock()
	r := ch.regs()
	c.bus.Write32(r.cr, c.bus.Read32(r.cr)&^uint32(crEN))
}

// Enabled reads the channel's live enable state. Hardware owns this bit: it
// clears it on its own after a transfer error, so the value is never cached
// in software.
func (ch Channel) Enabled() bool {
	return ch.c.bus.Read32(ch.regs().cr)&crEN != 0
}

// TransfersRemaining reads the live transfer count. Hardware decrements it
// per completed unit and reloads it automatically only in circular mode.
func (ch Channel) TransfersRemaining() uint16 {
	return uint16(ch.c.bus.Read32(ch.regs().ndtr))
}

// EnableInterrupt sets the enable bit for one interrupt source.
//
// The enabling bits are read-only while the channel runs, so a running
// channel is transparently stopped, updated and restarted, with a bounded
// wait for each enable-bit transition; the channel's run state is the same
// after the call as before it. A channel that was already stopped has the
// bit set directly.
func (ch Channel) EnableInterrupt(kind InterruptKind) error {
	return ch.setInterrupt(kind, true)
}

// DisableInterrupt clears the enable bit for one interrupt source, with the
// same run-state-preserving protocol as EnableInterrupt.
func (ch Channel) DisableInterrupt(kind InterruptKind) error {
	return ch.setInterrupt(kind, false)
}

func (ch Channel) setInterrupt(kind InterruptKind, enable bool) error {
	mask := kind.crMask()
	c := ch.c
	c.mu.Lock()
	defer c.mu.Unlock()
	r := ch.regs()

	cr := c.bus.Read32(r.cr)
	wasEnabled := cr&crEN != 0
	if wasEnabled {
		c.bus.Write32(r.cr, cr&^uint32(crEN))
		if err := c.waitEnable(r.cr, false); err != nil {
			return err
		}
	}

	cr = c.bus.Read32(r.cr)
	if enable {
		cr |= mask
	} else {
		cr &^= mask
	}
	c.bus.Write32(r.cr, cr)

	if wasEnabled {
		c.bus.Write32(r.cr, cr|crEN)
		if err := c.waitEnable(r.cr, true); err != nil {
			return err
		}
	}
	return nil
}

// InterruptEnabled reads back whether the interrupt source is enabled.
func (ch Channel) InterruptEnabled(kind InterruptKind) bool {
	return ch.c.bus.Read32(ch.regs().cr)&kind.crMask() != 0
}

// Flag reads the channel's latched flag for one interrupt kind. Flags stay
// set until cleared with ClearFlag regardless of whether the raising
// condition persists; the transfer-error flag additionally blocks
// re-enabling the channel until cleared. This read is the reporting path
// for transfer errors, which hardware raises asynchronously.
func (ch Channel) Flag(kind InterruptKind) bool {
	shift := ch.c.layout.flagShift[ch.index]
	return ch.c.bus.Read32(ch.c.layout.isr)&(kind.flagMask()<<shift) != 0
}

// ClearFlag un-latches the channel's flag for one interrupt kind. The
// flag-clear register is shared by all channels; exactly one bit is
// written, leaving other channels' and other kinds' flags untouched.
// Clearing the transfer-error flag is the only way to unblock a channel the
// hardware disabled on error.
func (ch Channel) ClearFlag(kind InterruptKind) {
	shift := ch.c.layout.flagShift[ch.index]
	ch.c.bus.Write32(ch.c.layout.ifcr, kind.flagMask()<<shift)
}

// ClearAllFlags un-latches every flag of this channel in one access, via
// the channel's global-clear bit.
func (ch Channel) ClearAllFlags() {
	shift := ch.c.layout.flagShift[ch.index]
	ch.c.bus.Write32(ch.c.layout.ifcr, uint32(flagGlobal|flagTransferComplete|flagHalfTransfer|flagTransferError)<<shift)
}
