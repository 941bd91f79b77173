package cli

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tuyago/tuya-ble/internal/tuya/protocol"
)

var setCmd = &cobra.Command{
	Use:   "set <address> <dp-id> <type> <value>",
	Short: "Write one datapoint on a device",
	Long: `Connect to a device and set a datapoint. The type declares how the
value is parsed and encoded:

  bool    true/false
  value   signed 32-bit integer
  string  UTF-8 text
  enum    unsigned integer
  raw     hex bytes
  bitmap  hex bytes

Example: tuyactl set DC:23:4E:A1:00:01 2 value 215`,
	Args: cobra.ExactArgs(4),
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	id, err := parseDPID(args[1])
	if err != nil {
		return err
	}
	dpType, value, err := parseTypedValue(args[2], args[3])
	if err != nil {
		return err
	}

	dev, err := openDevice(args[0])
	if err != nil {
		return err
	}
	if err := dev.Connect(cmd.Context()); err != nil {
		return err
	}
	defer dev.Disconnect()

	if _, err := dev.Datapoints().GetOrCreate(id, dpType, nil); err != nil {
		return err
	}
	if err := dev.Datapoints().Set(cmd.Context(), id, value); err != nil {
		return err
	}
	fmt.Printf("dp %d = %s\n", id, formatValue(value))
	return nil
}

func parseTypedValue(typeName, raw string) (protocol.DPType, any, error) {
	switch typeName {
	case "bool":
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return 0, nil, fmt.Errorf("bool value %q: %w", raw, err)
		}
		return protocol.DTBool, v, nil
	case "value":
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return 0, nil, fmt.Errorf("value %q: %w", raw, err)
		}
		return protocol.DTValue, int32(v), nil
	case "string":
		return protocol.DTString, raw, nil
	case "enum":
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return 0, nil, fmt.Errorf("enum value %q: %w", raw, err)
		}
		return protocol.DTEnum, uint32(v), nil
	case "raw", "bitmap":
		b, err := hex.DecodeString(raw)
		if err != nil {
			return 0, nil, fmt.Errorf("hex value %q: %w", raw, err)
		}
		if typeName == "bitmap" {
			return protocol.DTBitmap, b, nil
		}
		return protocol.DTRaw, b, nil
	}
	return 0, nil, fmt.Errorf("unknown datapoint type %q", typeName)
}
