package dmac

import (
	"errors"
	"testing"
)

func TestRouteSelector(t *testing.T) {
	sim := newSim(LayoutL4)
	c := New(sim, LayoutL4, nil)

	if err := c.Channel(1).Route(4); err != nil {
		t.Fatal(err)
	}
	if err := c.Channel(3).Route(7); err != nil {
		t.Fatal(err)
	}
	selr := sim.regs[LayoutL4.selr]
	if got := selr >> LayoutL4.selShift[1] & 0xF; got != 4 {
		t.Errorf("channel 1 selector field = %d, want 4", got)
	}
	if got := selr >> LayoutL4.selShift[3] & 0xF; got != 7 {
		t.Errorf("channel 3 selector field = %d, want 7", got)
	}
	// Rerouting one channel leaves the other's field intact.
	if err := c.Channel(1).Route(2); err != nil {
		t.Fatal(err)
	}
	selr = sim.regs[LayoutL4.selr]
	if got := selr >> LayoutL4.selShift[1] & 0xF; got != 2 {
		t.Errorf("channel 1 selector field = %d, want 2", got)
	}
	if got := selr >> LayoutL4.selShift[3] & 0xF; got != 7 {
		t.Errorf("channel 3 selector field clobbered, = %d, want 7", got)
	}
}

func TestRouteSelectorRejectsOutOfRange(t *testing.T) {
	sim := newSim(LayoutL4)
	ch := New(sim, LayoutL4, nil).Channel(0)

	err := ch.Route(8)
	if !errors.Is(err, ErrBadRequestLine) {
		t.Fatalf("err = %v, want ErrBadRequestLine", err)
	}
	if len(sim.trace) != 0 {
		t.Errorf("registers touched on rejected routing: %v", sim.trace)
	}
}

func TestRouteMux(t *testing.T) {
	sim := newSim(LayoutG4)
	mux := newMapBus()
	c := NewWithMux(sim, mux, LayoutG4, nil)

	if err := c.Channel(2).Route(MuxUSART2Rx); err != nil {
		t.Fatal(err)
	}
	off := 2 * LayoutG4.muxStride
	if got := mux.regs[off] & muxReqIDMask; got != uint32(MuxUSART2Rx) {
		t.Errorf("mux request register = %d, want %d", got, MuxUSART2Rx)
	}
	// Other channels' request registers untouched.
	for i := uint8(0); i < LayoutG4.NumChannels(); i++ {
		if i == 2 {
			continue
		}
		if got := mux.regs[uint32(i)*LayoutG4.muxStride]; got != 0 {
			t.Errorf("channel %d mux register = %d, want 0", i, got)
		}
	}
}

func TestRouteMuxRejectsOutOfRange(t *testing.T) {
	sim := newSim(LayoutG4)
	mux := newMapBus()
	ch := NewWithMux(sim, mux, LayoutG4, nil).Channel(0)

	err := ch.Route(LayoutG4.MaxRequestLine() + 1)
	if !errors.Is(err, ErrBadRequestLine) {
		t.Fatalf("err = %v, want ErrBadRequestLine", err)
	}
	if len(mux.trace) != 0 {
		t.Errorf("mux registers touched on rejected routing: %v", mux.trace)
	}
}

func TestRouteMuxWithoutBlock(t *testing.T) {
	ch := New(newSim(LayoutG0), LayoutG0, nil).Channel(0)
	if err := ch.Route(MuxADC1); !errors.Is(err, ErrNoMux) {
		t.Fatalf("err = %v, want ErrNoMux", err)
	}
}

func TestRouteNoStrategy(t *testing.T) {
	ch := New(newSim(LayoutF3), LayoutF3, nil).Channel(0)
	if err := ch.Route(0); !errors.Is(err, ErrNoRouting) {
		t.Fatalf("err = %v, want ErrNoRouting", err)
	}
}
