// feeder-calibrate runs the interactive load-cell calibration procedure
// against an attached feeder rig and prints the resulting scale factor for
// the configuration file.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/automaticats/feederd/internal/hardware"
	"github.com/automaticats/feederd/internal/log"
	"github.com/automaticats/feederd/internal/monitor"
	"github.com/automaticats/feederd/pkg/config"
)

func main() {
	var (
		serialDevice  = flag.String("serial", "", "Serial device of the feeder rig (e.g. /dev/ttyUSB0)")
		baud          = flag.Int("baud", 115200, "Serial baud rate")
		referenceMass = flag.Float64("reference", monitor.DefaultReferenceMass, "Reference mass in grams")
		debug         = flag.Bool("debug", false, "Turn on debugging output")
	)
	flag.Parse()

	if *serialDevice == "" {
		fmt.Fprintln(os.Stderr, "a serial device is required; calibration is skipped in simulation mode")
		os.Exit(1)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	backend, err := hardware.NewSerialBackend(config.HardwareData{
		SerialDevice: *serialDevice,
		Baud:         *baud,
	}, log.GetSugaredLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening feeder rig: %v\n", err)
		os.Exit(1)
	}
	defer backend.Close()

	ctx := context.Background()
	cal := monitor.NewCalibration()
	stdin := bufio.NewReader(os.Stdin)

	fmt.Println("Feeder Load Cell Calibration")
	fmt.Println("============================")
	fmt.Println()
	fmt.Println("Empty the bowl and press Enter to tare...")
	stdin.ReadString('\n')

	raw, err := backend.ReadWeight(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading scale: %v\n", err)
		os.Exit(1)
	}
	cal.Tare(raw)
	fmt.Printf("Tared at raw offset %.2f\n\n", raw)

	fmt.Printf("Place the %.0fg reference weight on the scale and press Enter...\n", *referenceMass)
	stdin.ReadString('\n')

	if err := cal.Calibrate(ctx, backend, *referenceMass); err != nil {
		fmt.Fprintf(os.Stderr, "Calibration failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Calibration complete. Scale factor: %v\n", cal.ScaleFactor())
}
