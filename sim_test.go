package dmac

import "fmt"

// busAccess is one bus transaction seen by the simulated controller.
type busAccess struct {
	Op  string // "r" or "w"
	Off uint32
	Val uint32
}

// simDMA models the controller register file closely enough to exercise
// the protocol on a host: the flag-clear register is write-one-to-clear,
// selected bits can be made to ignore writes (a stuck enable bit), every
// access is recorded, and hardware-enforced invariants are checked on each
// write.
type simDMA struct {
	l     *Layout
	regs  map[uint32]uint32
	trace []busAccess
	stuck map[uint32]uint32 // offset -> bits writes cannot change

	violations []string
}

func newSim(l *Layout) *simDMA {
	return &simDMA{
		l:     l,
		regs:  make(map[uint32]uint32),
		stuck: make(map[uint32]uint32),
	}
}

func (s *simDMA) Read32(off uint32) uint32 {
	v := s.regs[off]
	s.trace = append(s.trace, busAccess{"r", off, v})
	return v
}

func (s *simDMA) Write32(off, v uint32) {
	s.trace = append(s.trace, busAccess{"w", off, v})
	if off == s.l.ifcr {
		s.regs[s.l.isr] &^= v
		for i := uint8(0); i < s.l.numChannels; i++ {
			sh := s.l.flagShift[i]
			if v&(flagGlobal<<sh) != 0 {
				s.regs[s.l.isr] &^= 0xF << sh
			}
		}
		return
	}
	if m := s.stuck[off]; m != 0 {
		v = v&^m | s.regs[off]&m
	}
	s.check(off, v)
	s.regs[off] = v
}

// check flags writes the hardware documents as undefined: touching a
// channel's address, count or mode fields while its enable bit is set, and
// any mode word carrying circular and memory-to-memory together.
func (s *simDMA) check(off, v uint32) {
	for i := uint8(0); i < s.l.numChannels; i++ {
		r := &s.l.chans[i]
		enabled := s.regs[r.cr]&crEN != 0
		switch off {
		case r.par, r.mar, r.ndtr:
			if enabled {
				s.violate("channel %d: write %#x to %#x while enabled", i, v, off)
			}
		case r.cr:
			if enabled && v&crEN != 0 && (v^s.regs[r.cr])&(crModeMask|crIntMask) != 0 {
				s.violate("channel %d: mode fields changed while enabled", i)
			}
			if v&crCIRC != 0 && v&crMEM2MEM != 0 {
				s.violate("channel %d: CIRC and MEM2MEM set together", i)
			}
		}
	}
}

func (s *simDMA) violate(format string, args ...any) {
	s.violations = append(s.violations, fmt.Sprintf(format, args...))
}

func (s *simDMA) clearTrace() { s.trace = nil }

func (s *simDMA) writes() []busAccess {
	var ws []busAccess
	for _, a := range s.trace {
		if a.Op == "w" {
			ws = append(ws, a)
		}
	}
	return ws
}

// setFlags latches flag bits for a channel directly in the status register.
func (s *simDMA) setFlags(channel uint8, mask uint32) {
	s.regs[s.l.isr] |= mask << s.l.flagShift[channel]
}

// mapBus is a plain recording register file, used for the multiplexer
// block, which has no modeled behavior.
type mapBus struct {
	regs  map[uint32]uint32
	trace []busAccess
}

func newMapBus() *mapBus { return &mapBus{regs: make(map[uint32]uint32)} }

func (b *mapBus) Read32(off uint32) uint32 {
	v := b.regs[off]
	b.trace = append(b.trace, busAccess{"r", off, v})
	return v
}

func (b *mapBus) Write32(off, v uint32) {
	b.trace = append(b.trace, busAccess{"w", off, v})
	b.regs[off] = v
}
