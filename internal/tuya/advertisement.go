package tuya

import (
	"crypto/md5"
	"fmt"

	tuyacrypto "github.com/tuyago/tuya-ble/internal/tuya/crypto"
	"github.com/tuyago/tuya-ble/internal/tuya/protocol"
)

// Advertisement is the device identity broadcast before any connection:
// the product id from the service data and the bound flag, protocol
// version and encrypted device uuid from the manufacturer data.
type Advertisement struct {
	ProductID       []byte
	UUID            string
	IsBound         bool
	ProtocolVersion byte
}

// ParseAdvertisement decodes Tuya advertisement payloads. The device uuid
// in the manufacturer data is AES-CBC encrypted with MD5(product id) as
// both key and IV.
func ParseAdvertisement(serviceData, manufacturerData []byte) (*Advertisement, error) {
	if len(serviceData) < 2 || serviceData[0] != 0 {
		return nil, fmt.Errorf("%w: service data does not carry a product id", protocol.ErrFormat)
	}
	productID := make([]byte, len(serviceData)-1)
	copy(productID, serviceData[1:])

	if len(manufacturerData) < 7 {
		return nil, fmt.Errorf("%w: manufacturer data is %d bytes, need at least 7", protocol.ErrDataLength, len(manufacturerData))
	}

	adv := &Advertisement{
		ProductID:       productID,
		IsBound:         manufacturerData[0]&0x80 != 0,
		ProtocolVersion: manufacturerData[1],
	}

	key := md5.Sum(productID)
	raw, err := tuyacrypto.Decrypt(key[:], key[:], manufacturerData[6:])
	if err != nil {
		return nil, fmt.Errorf("tuya: decrypting advertised uuid: %w", err)
	}
	adv.UUID = string(raw)
	return adv, nil
}
