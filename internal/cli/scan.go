package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tuyago/tuya-ble/internal/transport"
	"github.com/tuyago/tuya-ble/internal/tuya"
)

var scanDuration time.Duration

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover nearby Tuya BLE devices",
	Long: `Scan for BLE advertisements carrying the Tuya service and print each
device's address, signal strength and decoded identity. The uuid column is
what "devices add --uuid" expects.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().DurationVar(&scanDuration, "duration", 10*time.Second, "How long to scan")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	adapter := transport.NewBluetoothAdapter()
	if err := adapter.Enable(); err != nil {
		return fmt.Errorf("enabling BLE adapter: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), scanDuration)
	defer cancel()

	fmt.Fprintf(os.Stderr, "Scanning for %s...\n", scanDuration)
	found, err := adapter.Scan(ctx, transport.ServiceUUID)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Println("No Tuya devices found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tRSSI\tNAME\tUUID\tBOUND\tVERSION")
	for _, dev := range found {
		adv, err := tuya.ParseAdvertisement(dev.ServiceData, dev.ManufacturerData)
		if err != nil {
			fmt.Fprintf(w, "%s\t%d\t%s\t-\t-\t-\n", dev.Address, dev.RSSI, dev.Name)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%t\t%d\n",
			dev.Address, dev.RSSI, dev.Name, adv.UUID, adv.IsBound, adv.ProtocolVersion)
	}
	return w.Flush()
}
