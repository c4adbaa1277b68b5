// Package dmac drives the channel-based DMA controllers found across
// several STM32 families. One Controller wraps a mapped register block and
// a channel descriptor table (Layout); per-channel configuration, interrupt
// management and peripheral request routing all go through Channel handles.
//
// The controller is an autonomous hardware agent: once a channel is enabled
// it serves peripheral requests (or runs a memory-to-memory block) on its
// own, synchronized with software only through register reads, writes and
// latched flags. The caller owns the memory buffer named in a transfer and
// must keep it valid, and unwritten by software, for the transfer lifetime.
package dmac

import (
	"errors"
	"sync"

	"github.com/embeddrv/dmac/mmio"
)

// Runtime error conditions.
var (
	// ErrCircularMemToMem: circular and memory-to-memory modes are
	// mutually exclusive; the combination is rejected before any register
	// is touched.
	ErrCircularMemToMem = errors.New("dmac: circular mode incompatible with memory-to-memory")
	// ErrHardwareUnresponsive: the enable bit did not reach the requested
	// state within the poll budget.
	ErrHardwareUnresponsive = errors.New("dmac: enable bit stuck, hardware unresponsive")
	// ErrBadRequestLine: request line identifier outside the valid range
	// for the active routing strategy.
	ErrBadRequestLine = errors.New("dmac: request line out of range")
	// ErrNoRouting: this controller generation has hardwired requests.
	ErrNoRouting = errors.New("dmac: controller has no request routing")
	// ErrNoMux: the generation routes through a multiplexer block but the
	// controller was constructed without one.
	ErrNoMux = errors.New("dmac: no multiplexer block attached")

	errChannelsClaimed = errors.New("dmac: all channels claimed")
)

const badChannelIndex = "dmac: invalid channel index"

// enablePollBudget bounds every enable-bit poll loop. The protocol would
// otherwise hang forever if hardware never reflects a written state, e.g.
// after a bus fault.
const enablePollBudget = 10000

// Clock enables the controller block's clock. The single-bit toggle lives
// in the reset and clock unit, outside this package; callers pass whatever
// implementation their platform provides, or nil if the clock is already
// running.
type Clock interface {
	EnableDMA()
}

// Controller represents one DMA controller block.
type Controller struct {
	bus    mmio.Bus32
	mux    mmio.Bus32 // multiplexer block, nil unless the layout routes through one
	layout *Layout

	// mu serializes register read-modify-write sequences so that a
	// competing access from another goroutine cannot land between the read
	// and the write. It also guards the claim mask.
	mu          sync.Mutex
	claimedMask uint8

	nc noCopy
}

// New constructs a Controller over a mapped register block. layout selects
// the controller generation; clk, if non-nil, has its EnableDMA called once
// before any register access. New panics if the layout fails validation.
func New(bus mmio.Bus32, layout *Layout, clk Clock) *Controller {
	return NewWithMux(bus, nil, layout, clk)
}

// NewWithMux is New for generations that route requests through an external
// multiplexer block, mapped separately from the controller block.
func NewWithMux(bus, mux mmio.Bus32, layout *Layout, clk Clock) *Controller {
	if err := layout.Validate(); err != nil {
		panic(err)
	}
	if clk != nil {
		clk.EnableDMA()
	}
	return &Controller{bus: bus, mux: mux, layout: layout}
}

// Layout returns the controller's channel descriptor table.
func (c *Controller) Layout() *Layout { return c.layout }

// Channel returns a handle for the channel at index. Channel handles are
// values; the index identifies both the channel's register set and its
// flag-bit group within the shared status registers.
func (c *Controller) Channel(index uint8) Channel {
	if index >= c.layout.numChannels {
		panic(badChannelIndex)
	}
	return Channel{c: c, index: index}
}

// ClaimChannel returns an unclaimed channel, marked claimed, or an error if
// every channel on this controller is taken.
func (c *Controller) ClaimChannel() (Channel, error) {
	for i := uint8(0); i < c.layout.numChannels; i++ {
		ch := c.Channel(i)
		if ch.TryClaim() {
			return ch, nil
		}
	}
	return Channel{}, errChannelsClaimed
}

// waitEnable polls the enable bit in the mode register at off until it
// reads back in the wanted state, within a bounded budget.
func (c *Controller) waitEnable(off uint32, want bool) error {
	for i := 0; i < enablePollBudget; i++ {
		if (c.bus.Read32(off)&crEN != 0) == want {
			return nil
		}
	}
	return ErrHardwareUnresponsive
}

// disableAndWait stops the channel whose mode register is at off, if it is
// running, and waits for hardware to confirm.
func (c *Controller) disableAndWait(off uint32) error {
	cr := c.bus.Read32(off)
	if cr&crEN == 0 {
		return nil
	}
	c.bus.Write32(off, cr&^uint32(crEN))
	return c.waitEnable(off, false)
}

// noCopy may be embedded into structs which must not be copied
// after the first use.
//
// See https://golang.org/issues/8005#issuecomment-190753527
// for details.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) UnLock() {}
