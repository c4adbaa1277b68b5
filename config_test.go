package dmac

import "testing"

func TestDefaultChannelConfig(t *testing.T) {
	cfg := DefaultChannelConfig()
	if cfg.Priority != PriorityMedium {
		t.Errorf("priority = %d, want medium", cfg.Priority)
	}
	if cfg.Circular || cfg.MemToMem || cfg.PeriphIncr {
		t.Errorf("unexpected mode flags in default: %+v", cfg)
	}
	if !cfg.MemIncr {
		t.Error("memory increment off in default")
	}
	if cfg.PeriphSize != Size8 || cfg.MemSize != Size8 {
		t.Errorf("data sizes = %d/%d, want 8-bit both sides", cfg.PeriphSize, cfg.MemSize)
	}
}

func TestModeWordEncoding(t *testing.T) {
	cases := []struct {
		name string
		dir  Direction
		cfg  ChannelConfig
		want uint32
	}{
		{
			"default rx",
			ReadFromPeriph,
			DefaultChannelConfig(),
			// PL=01, MINC
			0x1<<crPLPos | crMINC,
		},
		{
			"very-high circular tx 16-bit",
			ReadFromMem,
			ChannelConfig{
				Priority:   PriorityVeryHigh,
				Circular:   true,
				MemIncr:    true,
				PeriphSize: Size16,
				MemSize:    Size16,
			},
			0x3<<crPLPos | crDIR | crCIRC | crMINC | 0x1<<crPSIZEPos | 0x1<<crMSIZEPos,
		},
		{
			"mem2mem 32-bit both incrementing",
			ReadFromMem,
			ChannelConfig{
				Priority:   PriorityLow,
				MemToMem:   true,
				PeriphIncr: true,
				MemIncr:    true,
				PeriphSize: Size32,
				MemSize:    Size32,
			},
			crMEM2MEM | crDIR | crPINC | crMINC | 0x2<<crPSIZEPos | 0x2<<crMSIZEPos,
		},
	}
	for _, tc := range cases {
		if got := modeFor(0, tc.dir, tc.cfg); got != tc.want {
			t.Errorf("%s: mode word %#x, want %#x", tc.name, got, tc.want)
		}
	}
}

func TestModeWordPreservesInterruptEnables(t *testing.T) {
	prev := uint32(crTEIE | crTCIE | crEN | crCIRC)
	got := modeFor(prev, ReadFromPeriph, DefaultChannelConfig())
	if got&crTEIE == 0 || got&crTCIE == 0 {
		t.Errorf("interrupt enables dropped: %#x", got)
	}
	if got&crEN != 0 {
		t.Errorf("enable bit leaked into mode word: %#x", got)
	}
	if got&crCIRC != 0 {
		t.Errorf("stale circular bit survived: %#x", got)
	}
}

func TestInterruptKindMasks(t *testing.T) {
	cases := []struct {
		k    InterruptKind
		cr   uint32
		flag uint32
	}{
		{TransferError, crTEIE, flagTransferError},
		{HalfTransfer, crHTIE, flagHalfTransfer},
		{TransferComplete, crTCIE, flagTransferComplete},
	}
	for _, tc := range cases {
		if got := tc.k.crMask(); got != tc.cr {
			t.Errorf("%s: crMask %#x, want %#x", tc.k, got, tc.cr)
		}
		if got := tc.k.flagMask(); got != tc.flag {
			t.Errorf("%s: flagMask %#x, want %#x", tc.k, got, tc.flag)
		}
	}
}
