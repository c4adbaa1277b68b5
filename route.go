package dmac

// Request register field within a multiplexer block channel register.
const muxReqIDMask = 0x7F

// Route binds the channel to a peripheral request line.
//
// The two controller generations' strategies differ but share this
// contract: an identifier beyond the valid range returns ErrBadRequestLine
// without touching any register. Selector generations accept 0-7; mux
// generations accept up to Layout.MaxRequestLine.
func (ch Channel) Route(line uint8) error {
	c := ch.c
	l := c.layout
	switch l.routing {
	case RoutingSelector:
		if line > l.maxRequestLine {
			return ErrBadRequestLine
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		shift := l.selShift[ch.index]
		mask := (uint32(1)<<l.selWidth - 1) << shift
		v := c.bus.Read32(l.selr)
		c.bus.Write32(l.selr, v&^mask|uint32(line)<<shift)
		return nil
	case RoutingMux:
		if line > l.maxRequestLine {
			return ErrBadRequestLine
		}
		if c.mux == nil {
			return ErrNoMux
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		off := uint32(ch.index) * l.muxStride
		v := c.mux.Read32(off)
		c.mux.Write32(off, v&^uint32(muxReqIDMask)|uint32(line))
		return nil
	}
	return ErrNoRouting
}

// Multiplexer input identifiers for the G4 generation (reference manual
// table "Assignment of multiplexer inputs to resources"), the usual
// arguments to Route on mux generations. The table runs past 115; these are
// the lines the common peripherals use.
const (
	MuxADC1     uint8 = 5
	MuxDAC1Ch1  uint8 = 6
	MuxDAC1Ch2  uint8 = 7
	MuxTim6Up   uint8 = 8
	MuxTim7Up   uint8 = 9
	MuxSPI1Rx   uint8 = 10
	MuxSPI1Tx   uint8 = 11
	MuxSPI2Rx   uint8 = 12
	MuxSPI2Tx   uint8 = 13
	MuxSPI3Rx   uint8 = 14
	MuxSPI3Tx   uint8 = 15
	MuxI2C1Rx   uint8 = 16
	MuxI2C1Tx   uint8 = 17
	MuxI2C2Rx   uint8 = 18
	MuxI2C2Tx   uint8 = 19
	MuxI2C3Rx   uint8 = 20
	MuxI2C3Tx   uint8 = 21
	MuxI2C4Rx   uint8 = 22
	MuxI2C4Tx   uint8 = 23
	MuxUSART1Rx uint8 = 24
	MuxUSART1Tx uint8 = 25
	MuxUSART2Rx uint8 = 26
	MuxUSART2Tx uint8 = 27
	MuxUSART3Rx uint8 = 28
	MuxUSART3Tx uint8 = 29
	MuxUART4Rx  uint8 = 30
	MuxUART4Tx  uint8 = 31
	MuxUART5Rx  uint8 = 32
	MuxUART5Tx  uint8 = 33
	MuxLPUARTRx uint8 = 34
	MuxLPUARTTx uint8 = 35
	MuxADC2     uint8 = 36
	MuxADC3     uint8 = 37
	MuxADC4     uint8 = 38
	MuxADC5     uint8 = 39
)
