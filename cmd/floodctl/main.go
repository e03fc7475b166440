// Command floodctl runs a single Glossy flood from the command line,
// either as the initiator seeding new data or as a receiver/relay.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/michcald/glossy"
)

func main() {
	var (
		configFile = pflag.StringP("config-file", "c", "floodctl.yaml", "Configuration file name.")
		message    = pflag.StringP("message", "m", "", "Payload to seed as the initiator. Ignored for receivers.")
		spiBus     = pflag.StringP("spi-bus", "s", "/dev/spidev0.0", "SPI bus device path.")
		cePin      = pflag.IntP("ce-pin", "e", 25, "GPIO pin number (BCM) for the radio's CE line.")
		irqPin     = pflag.IntP("irq-pin", "i", 0, "GPIO pin number (BCM) for the radio's IRQ line. 0 disables interrupt-driven capture.")
		energy     = pflag.BoolP("energy", "g", false, "Report radio listen/transmit time after the flood.")
		help       = pflag.BoolP("help", "h", false, "Display help text.")
	)
	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: floodctl [flags]")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		return
	}

	cfg, err := glossy.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "floodctl: %v\n", err)
		os.Exit(1)
	}

	chip, timer, err := glossy.NewLinuxRadio(glossy.LinuxConfig{
		SpiBusPath: *spiBus,
		CEPin:      *cePin,
		IRQPin:     *irqPin,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "floodctl: opening radio: %v\n", err)
		os.Exit(1)
	}

	var meter *glossy.EnergyMeter
	var obs glossy.EnergyObserver
	if *energy {
		meter = &glossy.EnergyMeter{}
		obs = meter
	}

	fc := glossy.NewController(chip, timer, timer, nil, obs, cfg.ID)
	fc.SyncWindow = cfg.SyncWindow

	data := make([]byte, glossy.BufferCapacity())
	dataLen := cfg.DataLen
	if cfg.Initiator {
		n := copy(data, *message)
		dataLen = byte(n)
	}

	var tStop glossy.LFTicks
	if cfg.TStopMs > 0 {
		tStop = glossy.LFTicks(int64(cfg.TStopMs) * 32768 / 1000)
	}

	done := make(chan struct{})
	sess, err := fc.Start(data, dataLen, cfg.Initiator, cfg.Sync, cfg.TxMax, cfg.HeaderTag, tStop, func(any) {
		close(done)
	}, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "floodctl: starting flood: %v\n", err)
		os.Exit(1)
	}

	<-done
	fmt.Printf("flood finished: state=%s rx_cnt=%d tx_cnt=%d relay_cnt=%d t_ref_l_updated=%v stats=%+v\n",
		sess.State(), sess.RxCnt(), sess.TxCnt(), sess.RelayCnt(), sess.TRefLUpdated(), sess.Stats())
	if meter != nil {
		listen, transmit := meter.Snapshot()
		fmt.Printf("radio time: listen=%s transmit=%s\n", listen, transmit)
	}
}
