// Package cli implements the tuyactl command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tuyago/tuya-ble/internal/devices"
	"github.com/tuyago/tuya-ble/internal/transport"
	"github.com/tuyago/tuya-ble/internal/tuya"
)

var (
	devicesFile string
	timeout     time.Duration
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "tuyactl",
	Short: "Control Tuya BLE devices without the cloud",
	Long: `tuyactl talks the Tuya BLE v3 protocol directly to nearby devices:
scan for them, store their credentials, read and write datapoints, and
watch live state changes.

Credentials (uuid, local_key, device_id) must be obtained once from the
Tuya cloud or an extraction tool and registered with "tuyactl devices add";
after that everything runs locally over BLE.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&devicesFile, "devices-file", devices.DefaultStorePath(), "Credential store path")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Per-request timeout")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setupLogging(level string) error {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func openStore() (*devices.FileStore, error) {
	if devicesFile == "" {
		return nil, fmt.Errorf("no credential store path; pass --devices-file")
	}
	return devices.NewFileStore(devicesFile)
}

// openDevice builds a session for address backed by the real adapter and the
// credential store. The caller connects and disconnects it.
func openDevice(address string) (*tuya.Device, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	opts := tuya.DefaultOptions()
	opts.RequestTimeout = timeout
	return tuya.NewDevice(transport.NewBluetoothAdapter(), store, address, opts), nil
}
