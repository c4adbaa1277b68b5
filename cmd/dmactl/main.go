// dmactl configures and runs a single DMA transfer from the command line,
// driving a memory-mapped controller through /dev/mem. It exists to
// exercise and debug the dmac package on boards where the controller block
// is visible to Linux; peripheral drivers embed the package directly.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	yml "gopkg.in/yaml.v2"

	"github.com/embeddrv/dmac"
	"github.com/embeddrv/dmac/mmio"
)

var (
	// Version is the version number. Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "dmactl.yml"
	k              = koanf.New(".")
)

// Transfer describes the one-shot transfer to run.
type Transfer struct {
	Channel     uint8  `koanf:"channel" yaml:"channel"`
	RequestLine int    `koanf:"request-line" yaml:"request-line"` // -1 skips routing
	PeriphAddr  uint32 `koanf:"periph-addr" yaml:"periph-addr"`
	MemAddr     uint32 `koanf:"mem-addr" yaml:"mem-addr"`
	Count       uint16 `koanf:"count" yaml:"count"`
	Direction   string `koanf:"direction" yaml:"direction"` // periph-to-mem | mem-to-periph
	Priority    string `koanf:"priority" yaml:"priority"`   // low | medium | high | very-high
	Circular    bool   `koanf:"circular" yaml:"circular"`
	MemToMem    bool   `koanf:"mem-to-mem" yaml:"mem-to-mem"`
	PeriphIncr  bool   `koanf:"periph-incr" yaml:"periph-incr"`
	MemIncr     bool   `koanf:"mem-incr" yaml:"mem-incr"`
	PeriphBits  int    `koanf:"periph-bits" yaml:"periph-bits"` // 8, 16, 32
	MemBits     int    `koanf:"mem-bits" yaml:"mem-bits"`
}

// Config is the board description plus the transfer to run.
type Config struct {
	Variant   string   `koanf:"variant" yaml:"variant"` // STM32F3 | STM32L4 | STM32G0 | STM32G4
	Base      uint32   `koanf:"base" yaml:"base"`       // controller block physical address
	MuxBase   uint32   `koanf:"mux-base" yaml:"mux-base"`
	TimeoutMS int      `koanf:"timeout-ms" yaml:"timeout-ms"`
	Transfer  Transfer `koanf:"transfer" yaml:"transfer"`
}

func defaults() Config {
	return Config{
		Variant:   "STM32L4",
		Base:      0x4002_0000,
		TimeoutMS: 1000,
		Transfer: Transfer{
			RequestLine: -1,
			Count:       1,
			Direction:   "periph-to-mem",
			Priority:    "medium",
			MemIncr:     true,
			PeriphBits:  8,
			MemBits:     8,
		},
	}
}

func setupconfig() {
	k.Load(structs.Provider(defaults(), "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `dmactl drives a memory-mapped DMA controller through /dev/mem.

Usage:
	dmactl <command>

Commands:
	run      configure, route and start the transfer from ` + ConfigFileName + `
	stop     clear the enable bit of the configured channel
	status   print the channel's enable state, remaining count and flags
	mkconf   write a default ` + ConfigFileName + `
	conf     print the loaded configuration
	version
	help`
	fmt.Println(str)
}

func help() {
	str := `dmactl is configured via ` + ConfigFileName + `.

"variant" picks the controller generation (STM32F3, STM32L4, STM32G0,
STM32G4) and with it the channel count and routing strategy. "base" is the
physical address of the controller block; "mux-base" is required for the
G0/G4 generations, which route requests through a separate multiplexer
block.

"transfer.request-line" of -1 skips routing. Addresses are bus addresses;
"count" is in transfer units of "periph-bits"/"mem-bits" width. The tool
waits for the transfer-complete or transfer-error flag, bounded by
"timeout-ms", then reports the outcome.

Running a transfer needs root (or CAP_SYS_RAWIO) for /dev/mem.`
	fmt.Println(str)
}

func mkconf() {
	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	if err := yml.NewEncoder(f).Encode(c); err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := Config{}
	k.Unmarshal("", &c)
	if err := yml.NewEncoder(os.Stdout).Encode(c); err != nil {
		log.Fatal(err)
	}
}

func loadconf() Config {
	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		log.Fatal(err)
	}
	return c
}

// controller maps the register blocks and builds the Controller. The clock
// is nil: on a running Linux system the block's clock is already up.
func controller(c Config) (*dmac.Controller, func(), error) {
	layout := dmac.LayoutByName(c.Variant)
	if layout == nil {
		return nil, nil, fmt.Errorf("unknown variant %q", c.Variant)
	}
	const blockSize = 0x400
	bus, closeBus, err := mmio.MapDevMem(uintptr(c.Base), blockSize)
	if err != nil {
		return nil, nil, err
	}
	if layout.Routing() != dmac.RoutingMux {
		return dmac.New(bus, layout, nil), func() { closeBus() }, nil
	}
	if c.MuxBase == 0 {
		closeBus()
		return nil, nil, errors.New("variant routes through a multiplexer; set mux-base")
	}
	mux, closeMux, err := mmio.MapDevMem(uintptr(c.MuxBase), blockSize)
	if err != nil {
		closeBus()
		return nil, nil, err
	}
	cleanup := func() { closeMux(); closeBus() }
	return dmac.NewWithMux(bus, mux, layout, nil), cleanup, nil
}

func run() {
	c := loadconf()
	ctl, done, err := controller(c)
	if err != nil {
		log.Fatal(err)
	}
	defer done()

	ch := ctl.Channel(c.Transfer.Channel)
	if !ch.TryClaim() {
		log.Fatalf("channel %d already claimed", c.Transfer.Channel)
	}
	defer ch.Unclaim()

	if c.Transfer.RequestLine >= 0 {
		if err := ch.Route(uint8(c.Transfer.RequestLine)); err != nil {
			log.Fatalf("route request line %d: %v", c.Transfer.RequestLine, err)
		}
	}

	dir, cfg, err := channelSetup(c.Transfer)
	if err != nil {
		log.Fatal(err)
	}
	ch.ClearAllFlags()
	if err := ch.Configure(c.Transfer.PeriphAddr, c.Transfer.MemAddr, c.Transfer.Count, dir, cfg); err != nil {
		log.Fatalf("configure: %v", err)
	}
	log.Printf("channel %d running, %d units", ch.Index(), c.Transfer.Count)

	if c.Transfer.Circular {
		log.Print("circular transfer started; leaving it running")
		return
	}
	if err := awaitCompletion(ch, time.Duration(c.TimeoutMS)*time.Millisecond); err != nil {
		ch.Stop()
		log.Fatal(err)
	}
	ch.Stop()
	ch.ClearAllFlags()
	log.Print("transfer complete")
}

func stop() {
	c := loadconf()
	ctl, done, err := controller(c)
	if err != nil {
		log.Fatal(err)
	}
	defer done()
	ctl.Channel(c.Transfer.Channel).Stop()
	log.Printf("channel %d disable requested", c.Transfer.Channel)
}

func status() {
	c := loadconf()
	ctl, done, err := controller(c)
	if err != nil {
		log.Fatal(err)
	}
	defer done()
	ch := ctl.Channel(c.Transfer.Channel)
	fmt.Printf("channel %d on %s\n", ch.Index(), ctl.Layout().Name())
	fmt.Printf("  enabled:   %v\n", ch.Enabled())
	fmt.Printf("  remaining: %d\n", ch.TransfersRemaining())
	for _, kind := range []dmac.InterruptKind{dmac.TransferComplete, dmac.HalfTransfer, dmac.TransferError} {
		fmt.Printf("  %-18s %v\n", kind.String()+":", ch.Flag(kind))
	}
}

var (
	errTransfer = errors.New("transfer error flagged by hardware")
	errTimeout  = errors.New("timed out waiting for completion")
	errBusy     = errors.New("transfer in progress")
)

// awaitCompletion polls the completion and error flags until one latches or
// the deadline passes. Stop itself is fire-and-forget, so this is where an
// idle channel is actually established.
func awaitCompletion(ch dmac.Channel, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	poll := func() error {
		if ch.Flag(dmac.TransferError) {
			return backoff.Permanent(errTransfer)
		}
		if ch.Flag(dmac.TransferComplete) {
			return nil
		}
		if time.Now().After(deadline) {
			return backoff.Permanent(errTimeout)
		}
		return errBusy
	}
	return backoff.Retry(poll, backoff.NewConstantBackOff(500*time.Microsecond))
}

func channelSetup(t Transfer) (dmac.Direction, dmac.ChannelConfig, error) {
	cfg := dmac.ChannelConfig{
		Circular:   t.Circular,
		MemToMem:   t.MemToMem,
		PeriphIncr: t.PeriphIncr,
		MemIncr:    t.MemIncr,
	}
	var dir dmac.Direction
	switch t.Direction {
	case "periph-to-mem":
		dir = dmac.ReadFromPeriph
	case "mem-to-periph":
		dir = dmac.ReadFromMem
	default:
		return 0, cfg, fmt.Errorf("unknown direction %q", t.Direction)
	}
	switch t.Priority {
	case "low":
		cfg.Priority = dmac.PriorityLow
	case "medium":
		cfg.Priority = dmac.PriorityMedium
	case "high":
		cfg.Priority = dmac.PriorityHigh
	case "very-high":
		cfg.Priority = dmac.PriorityVeryHigh
	default:
		return 0, cfg, fmt.Errorf("unknown priority %q", t.Priority)
	}
	var err error
	if cfg.PeriphSize, err = sizeOf(t.PeriphBits); err != nil {
		return 0, cfg, err
	}
	if cfg.MemSize, err = sizeOf(t.MemBits); err != nil {
		return 0, cfg, err
	}
	return dir, cfg, nil
}

func sizeOf(bits int) (dmac.DataSize, error) {
	switch bits {
	case 8:
		return dmac.Size8, nil
	case 16:
		return dmac.Size16, nil
	case 32:
		return dmac.Size32, nil
	}
	return 0, fmt.Errorf("data width %d not one of 8, 16, 32", bits)
}

func main() {
	setupconfig()
	if len(os.Args) < 2 {
		root()
		return
	}
	switch os.Args[1] {
	case "run":
		run()
	case "stop":
		stop()
	case "status":
		status()
	case "mkconf":
		mkconf()
	case "conf":
		printconf()
	case "version":
		fmt.Println(Version)
	case "help":
		help()
	default:
		root()
	}
}
