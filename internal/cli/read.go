package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tuyago/tuya-ble/internal/tuya"
)

var readCmd = &cobra.Command{
	Use:   "read <address> [dp-id]",
	Short: "Read datapoints from a device",
	Long: `Connect to a device, pull its current datapoint state and print it.
With a dp-id argument only that datapoint is printed.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	dev, err := openDevice(args[0])
	if err != nil {
		return err
	}
	if err := dev.Connect(cmd.Context()); err != nil {
		return err
	}
	defer dev.Disconnect()

	if len(args) == 2 {
		id, err := parseDPID(args[1])
		if err != nil {
			return err
		}
		dp, ok := dev.Datapoints().Get(id)
		if !ok {
			return fmt.Errorf("device did not report datapoint %d", id)
		}
		printDatapoints(dp)
		return nil
	}

	all := dev.Datapoints().All()
	if len(all) == 0 {
		fmt.Println("Device reported no datapoints.")
		return nil
	}
	printDatapoints(all...)
	return nil
}

func parseDPID(s string) (uint8, error) {
	id, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("datapoint id %q: must be 0..255", s)
	}
	return uint8(id), nil
}

func printDatapoints(dps ...tuya.Datapoint) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DP\tTYPE\tVALUE\tUPDATED")
	for _, dp := range dps {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			dp.ID, dp.Type, formatValue(dp.Value), dp.Timestamp.Format("15:04:05"))
	}
	w.Flush()
}

func formatValue(v any) string {
	if b, ok := v.([]byte); ok {
		return fmt.Sprintf("%x", b)
	}
	return fmt.Sprintf("%v", v)
}
