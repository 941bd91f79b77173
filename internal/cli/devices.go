package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tuyago/tuya-ble/internal/devices"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage stored device credentials",
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		records := store.List()
		if len(records) == 0 {
			fmt.Println("No devices registered. Use \"tuyactl devices add\".")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ADDRESS\tNAME\tCATEGORY\tPRODUCT")
		for _, c := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Address, c.DeviceName, c.Category, c.ProductID)
		}
		return w.Flush()
	},
}

var addCreds devices.Credentials

var devicesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a device's credentials",
	Long: `Register the long-lived secrets for one device. The uuid, local_key and
device_id come from the Tuya cloud API or an extraction tool; the address is
the BLE address shown by "tuyactl scan".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Put(addCreds); err != nil {
			return err
		}
		fmt.Printf("Registered %s\n", addCreds.Address)
		return nil
	},
}

func init() {
	f := devicesAddCmd.Flags()
	f.StringVar(&addCreds.Address, "address", "", "BLE address (required)")
	f.StringVar(&addCreds.UUID, "uuid", "", "Device uuid (required)")
	f.StringVar(&addCreds.LocalKey, "local-key", "", "Device local_key (required)")
	f.StringVar(&addCreds.DeviceID, "device-id", "", "Device id (required)")
	f.StringVar(&addCreds.Category, "category", "", "Device category (required)")
	f.StringVar(&addCreds.ProductID, "product-id", "", "Product id (required)")
	f.StringVar(&addCreds.DeviceName, "name", "", "Friendly name")
	f.StringVar(&addCreds.ProductModel, "product-model", "", "Product model")
	f.StringVar(&addCreds.ProductName, "product-name", "", "Product name")
	for _, flag := range []string{"address", "uuid", "local-key", "device-id", "category", "product-id"} {
		_ = devicesAddCmd.MarkFlagRequired(flag)
	}

	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesAddCmd)
	rootCmd.AddCommand(devicesCmd)
}
