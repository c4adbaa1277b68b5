package dmac

import "errors"

// maxChannels is the largest channel count across supported controller
// generations.
const maxChannels = 8

// RoutingStrategy selects how a channel is bound to a peripheral request
// line on a given controller generation.
type RoutingStrategy uint8

const (
	// RoutingNone: requests are hardwired per channel, no routing registers.
	RoutingNone RoutingStrategy = iota
	// RoutingSelector: a per-channel field packed into one shared selector
	// register inside the controller block.
	RoutingSelector
	// RoutingMux: an external multiplexer block with one request register
	// per channel.
	RoutingMux
)

// chanRegs holds the byte offsets of one channel's register set from the
// controller base.
type chanRegs struct {
	cr   uint32 // mode/control register
	ndtr uint32 // transfer count
	par  uint32 // peripheral address
	mar  uint32 // memory address
}

// Layout describes one DMA controller generation: how many channels it has,
// where each channel's registers live, where each channel's flag group sits
// in the shared status registers, and which routing strategy applies. The
// control protocol is written once against this table; supporting a new
// generation means adding data, not code.
type Layout struct {
	name        string
	numChannels uint8

	isr  uint32 // shared status register
	ifcr uint32 // shared flag-clear register, write one to clear

	chans     [maxChannels]chanRegs
	flagShift [maxChannels]uint8 // shift of the 4-bit flag group per channel

	routing RoutingStrategy

	// Selector strategy.
	selr     uint32
	selShift [maxChannels]uint8
	selWidth uint8

	// Multiplexer strategy.
	muxStride      uint32
	maxRequestLine uint8
}

// Name returns the generation name, e.g. "STM32L4".
func (l *Layout) Name() string { return l.name }

// NumChannels returns the channel count for this generation.
func (l *Layout) NumChannels() uint8 { return l.numChannels }

// Routing returns the generation's routing strategy.
func (l *Layout) Routing() RoutingStrategy { return l.routing }

// MaxRequestLine returns the largest valid request line identifier, or 0
// when the generation has no routing.
func (l *Layout) MaxRequestLine() uint8 { return l.maxRequestLine }

// Validate checks the table for internal consistency. A Layout that fails
// validation cannot be used to construct a Controller.
func (l *Layout) Validate() error {
	if l.numChannels < 5 || l.numChannels > maxChannels {
		return errors.New("dmac: layout channel count out of range")
	}
	seen := map[uint32]bool{l.isr: true}
	if seen[l.ifcr] {
		return errors.New("dmac: layout status and flag-clear registers collide")
	}
	seen[l.ifcr] = true
	for i := uint8(0); i < l.numChannels; i++ {
		r := &l.chans[i]
		for _, off := range []uint32{r.cr, r.ndtr, r.par, r.mar} {
			if seen[off] {
				return errors.New("dmac: layout register offsets collide")
			}
			seen[off] = true
		}
		if l.flagShift[i] > 32-4 {
			return errors.New("dmac: layout flag group out of register range")
		}
	}
	switch l.routing {
	case RoutingNone:
	case RoutingSelector:
		if l.selWidth == 0 || l.selWidth > 8 {
			return errors.New("dmac: layout selector field width out of range")
		}
		for i := uint8(0); i < l.numChannels; i++ {
			if uint32(l.selShift[i])+uint32(l.selWidth) > 32 {
				return errors.New("dmac: layout selector field out of register range")
			}
		}
	case RoutingMux:
		if l.muxStride == 0 {
			return errors.New("dmac: layout multiplexer stride unset")
		}
	default:
		return errors.New("dmac: layout routing strategy unknown")
	}
	return nil
}

// stm32Layout builds the register map shared by the STM32 DMA generations:
// ISR at +0x00, IFCR at +0x04, then a 0x14-byte register group per channel
// and a 4-bit flag group per channel in the shared registers.
func stm32Layout(name string, numChannels uint8, routing RoutingStrategy) *Layout {
	l := &Layout{
		name:        name,
		numChannels: numChannels,
		isr:         0x00,
		ifcr:        0x04,
		routing:     routing,
	}
	for i := uint8(0); i < numChannels; i++ {
		base := 0x08 + 0x14*uint32(i)
		l.chans[i] = chanRegs{
			cr:   base + 0x00,
			ndtr: base + 0x04,
			par:  base + 0x08,
			mar:  base + 0x0C,
		}
		l.flagShift[i] = 4 * i
		l.selShift[i] = 4 * i
	}
	switch routing {
	case RoutingSelector:
		l.selr = 0xA8
		l.selWidth = 4
		l.maxRequestLine = 7
	case RoutingMux:
		l.muxStride = 4
	}
	return l
}

// Predefined channel descriptor tables, one per supported controller
// generation.
var (
	// LayoutF3: 5 channels, request lines hardwired per channel.
	LayoutF3 = stm32Layout("STM32F3", 5, RoutingNone)

	// LayoutL4: 7 channels, per-channel selector fields in a shared
	// register, request lines 0-7.
	LayoutL4 = stm32Layout("STM32L4", 7, RoutingSelector)

	// LayoutG0: 5 channels routed through an external multiplexer block.
	LayoutG0 = func() *Layout {
		l := stm32Layout("STM32G0", 5, RoutingMux)
		l.maxRequestLine = 57
		return l
	}()

	// LayoutG4: 8 channels routed through an external multiplexer block.
	LayoutG4 = func() *Layout {
		l := stm32Layout("STM32G4", 8, RoutingMux)
		l.maxRequestLine = 115
		return l
	}()
)

// LayoutByName returns the predefined layout with the given name, or nil.
func LayoutByName(name string) *Layout {
	for _, l := range []*Layout{LayoutF3, LayoutL4, LayoutG0, LayoutG4} {
		if l.name == name {
			return l
		}
	}
	return nil
}
