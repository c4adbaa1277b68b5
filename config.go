package dmac

// Mode register bit assignment, identical across the supported generations.
const (
	crEN       = 1 << 0 // channel enable, gates every field below
	crTCIE     = 1 << 1 // transfer-complete interrupt enable
	crHTIE     = 1 << 2 // half-transfer interrupt enable
	crTEIE     = 1 << 3 // transfer-error interrupt enable
	crDIRPos   = 4
	crDIR      = 1 << crDIRPos
	crCIRCPos  = 5
	crCIRC     = 1 << crCIRCPos // circular mode
	crPINCPos  = 6
	crPINC     = 1 << crPINCPos // peripheral address increment
	crMINCPos  = 7
	crMINC     = 1 << crMINCPos // memory address increment
	crPSIZEPos = 8
	crPSIZEMsk = 0b11 << crPSIZEPos
	crMSIZEPos = 10
	crMSIZEMsk = 0b11 << crMSIZEPos
	crPLPos    = 12
	crPLMsk    = 0b11 << crPLPos
	crM2MPos   = 14
	crMEM2MEM  = 1 << crM2MPos

	crIntMask  = crTCIE | crHTIE | crTEIE
	crModeMask = crDIR | crCIRC | crPINC | crMINC | crPSIZEMsk | crMSIZEMsk | crPLMsk | crMEM2MEM
)

// Priority is the software-chosen channel priority. Hardware breaks ties
// between equal priorities in favor of the lower-numbered channel.
type Priority uint8

const (
	PriorityLow      Priority = 0b00
	PriorityMedium   Priority = 0b01
	PriorityHigh     Priority = 0b10
	PriorityVeryHigh Priority = 0b11
)

// Direction is the transfer direction of a channel.
type Direction uint8

const (
	// ReadFromPeriph moves data from the peripheral address to memory.
	ReadFromPeriph Direction = 0
	// ReadFromMem moves data from memory to the peripheral address.
	ReadFromMem Direction = 1
)

// DataSize is the per-side transfer unit width.
type DataSize uint8

const (
	Size8  DataSize = 0b00
	Size16 DataSize = 0b01
	Size32 DataSize = 0b10
)

// InterruptKind names one of the three per-channel interrupt sources. Each
// is independently enablable and its latched flag independently clearable.
type InterruptKind uint8

const (
	TransferError InterruptKind = iota
	HalfTransfer
	TransferComplete
)

const badInterruptKind = "dmac: invalid interrupt kind"

// crMask returns the interrupt-enable bit for the kind.
func (k InterruptKind) crMask() uint32 {
	switch k {
	case TransferError:
		return crTEIE
	case HalfTransfer:
		return crHTIE
	case TransferComplete:
		return crTCIE
	}
	panic(badInterruptKind)
}

// Flag group bit assignment within a channel's 4-bit slice of the shared
// status and flag-clear registers.
const (
	flagGlobal           = 1 << 0
	flagTransferComplete = 1 << 1
	flagHalfTransfer     = 1 << 2
	flagTransferError    = 1 << 3
)

// flagMask returns the kind's bit within a channel's flag group.
func (k InterruptKind) flagMask() uint32 {
	switch k {
	case TransferError:
		return flagTransferError
	case HalfTransfer:
		return flagHalfTransfer
	case TransferComplete:
		return flagTransferComplete
	}
	panic(badInterruptKind)
}

func (k InterruptKind) String() string {
	switch k {
	case TransferError:
		return "transfer-error"
	case HalfTransfer:
		return "half-transfer"
	case TransferComplete:
		return "transfer-complete"
	}
	return "unknown"
}

// ChannelConfig holds the transfer-mode parameters of one channel. All
// fields land in the channel's mode register and are read-only while the
// channel is enabled; Configure applies them only with the channel stopped.
type ChannelConfig struct {
	Priority Priority
	// Circular reloads the transfer count automatically when it reaches
	// zero. Incompatible with MemToMem.
	Circular bool
	// MemToMem runs a memory-to-memory block transfer instead of pacing
	// transfers on peripheral requests.
	MemToMem   bool
	PeriphIncr bool
	MemIncr    bool
	PeriphSize DataSize
	MemSize    DataSize
}

// DefaultChannelConfig returns the configuration used by most
// peripheral-paced transfers: medium priority, increment the memory buffer
// address but not the peripheral register address, 8-bit units both sides.
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		Priority:   PriorityMedium,
		PeriphIncr: false,
		MemIncr:    true,
		PeriphSize: Size8,
		MemSize:    Size8,
	}
}

// modeWord assembles a channel mode register value field by field.
type modeWord struct {
	cr uint32
}

func (w *modeWord) setPriority(p Priority) {
	w.cr = w.cr&^uint32(crPLMsk) | uint32(p&0b11)<<crPLPos
}

func (w *modeWord) setDirection(d Direction) {
	setBitPos(&w.cr, crDIRPos, d == ReadFromMem)
}

func (w *modeWord) setCircular(on bool) {
	setBitPos(&w.cr, crCIRCPos, on)
}

func (w *modeWord) setMemToMem(on bool) {
	setBitPos(&w.cr, crM2MPos, on)
}

func (w *modeWord) setPeriphIncrement(on bool) {
	setBitPos(&w.cr, crPINCPos, on)
}

func (w *modeWord) setMemIncrement(on bool) {
	setBitPos(&w.cr, crMINCPos, on)
}

func (w *modeWord) setPeriphSize(s DataSize) {
	w.cr = w.cr&^uint32(crPSIZEMsk) | uint32(s&0b11)<<crPSIZEPos
}

func (w *modeWord) setMemSize(s DataSize) {
	w.cr = w.cr&^uint32(crMSIZEMsk) | uint32(s&0b11)<<crMSIZEPos
}

func setBitPos(cr *uint32, pos uint8, bit bool) {
	if bit {
		*cr |= 1 << pos
	} else {
		*cr &^= 1 << pos
	}
}

// modeFor builds the mode word for cfg and dir on top of prev, preserving
// the interrupt-enable bits already programmed. The enable bit is left
// clear; the caller activates the channel in a separate access.
func modeFor(prev uint32, dir Direction, cfg ChannelConfig) uint32 {
	w := modeWord{cr: prev & crIntMask}
	w.setPriority(cfg.Priority)
	w.setDirection(dir)
	w.setCircular(cfg.Circular)
	w.setMemToMem(cfg.MemToMem)
	w.setPeriphIncrement(cfg.PeriphIncr)
	w.setMemIncrement(cfg.MemIncr)
	w.setPeriphSize(cfg.PeriphSize)
	w.setMemSize(cfg.MemSize)
	return w.cr
}
