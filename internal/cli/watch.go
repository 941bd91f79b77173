package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tuyago/tuya-ble/internal/tuya"
)

var watchCmd = &cobra.Command{
	Use:   "watch <address>",
	Short: "Stream datapoint changes from a device",
	Long: `Connect to a device and print every datapoint change as it is reported,
reconnecting automatically if the link drops. Ctrl+C stops.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dev, err := openDevice(args[0])
	if err != nil {
		return err
	}

	dev.RegisterCallback(func(changed []tuya.Datapoint) {
		for _, dp := range changed {
			origin := "local"
			if dp.ChangedByDevice {
				origin = "device"
			}
			fmt.Printf("%s  dp %d (%s) = %s  [%s]\n",
				dp.Timestamp.Format("15:04:05"), dp.ID, dp.Type, formatValue(dp.Value), origin)
		}
	})
	dev.RegisterConnectedCallback(func() {
		fmt.Fprintf(os.Stderr, "Connected to %s\n", dev.Name())
	})

	done := make(chan error, 1)
	dev.RegisterDisconnectedCallback(func(err error) {
		if err != nil {
			done <- err
		}
	})

	if err := dev.Connect(cmd.Context()); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		fmt.Fprintf(os.Stderr, "Received %s, disconnecting...\n", sig)
		return dev.Disconnect()
	case err := <-done:
		return err
	}
}
