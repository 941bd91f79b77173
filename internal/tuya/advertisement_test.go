package tuya

import (
	"crypto/md5"
	"testing"

	tuyacrypto "github.com/tuyago/tuya-ble/internal/tuya/crypto"
)

func buildManufacturerData(t *testing.T, productID []byte, uuid string, bound bool, version byte) []byte {
	t.Helper()
	key := md5.Sum(productID)
	encrypted, err := tuyacrypto.Encrypt(key[:], key[:], []byte(uuid))
	if err != nil {
		t.Fatalf("encrypting uuid: %v", err)
	}
	data := make([]byte, 6, 6+len(encrypted))
	if bound {
		data[0] = 0x80
	}
	data[1] = version
	return append(data, encrypted...)
}

func TestParseAdvertisement(t *testing.T) {
	productID := []byte("ph9qlxmv")
	uuid := "tuya7a9f12c4e8b0" // exactly one AES block, no padding
	serviceData := append([]byte{0}, productID...)
	mfrData := buildManufacturerData(t, productID, uuid, true, 3)

	adv, err := ParseAdvertisement(serviceData, mfrData)
	if err != nil {
		t.Fatalf("ParseAdvertisement() error = %v", err)
	}
	if string(adv.ProductID) != string(productID) {
		t.Errorf("ProductID = %q, want %q", adv.ProductID, productID)
	}
	if adv.UUID != uuid {
		t.Errorf("UUID = %q, want %q", adv.UUID, uuid)
	}
	if !adv.IsBound {
		t.Error("IsBound = false, want true")
	}
	if adv.ProtocolVersion != 3 {
		t.Errorf("ProtocolVersion = %d, want 3", adv.ProtocolVersion)
	}
}

func TestParseAdvertisementUnbound(t *testing.T) {
	productID := []byte("ph9qlxmv")
	serviceData := append([]byte{0}, productID...)
	mfrData := buildManufacturerData(t, productID, "tuya7a9f12c4e8b0", false, 2)

	adv, err := ParseAdvertisement(serviceData, mfrData)
	if err != nil {
		t.Fatalf("ParseAdvertisement() error = %v", err)
	}
	if adv.IsBound {
		t.Error("IsBound = true, want false")
	}
	if adv.ProtocolVersion != 2 {
		t.Errorf("ProtocolVersion = %d, want 2", adv.ProtocolVersion)
	}
}

func TestParseAdvertisementBadServiceData(t *testing.T) {
	if _, err := ParseAdvertisement(nil, make([]byte, 22)); err == nil {
		t.Error("ParseAdvertisement() accepted empty service data")
	}
	if _, err := ParseAdvertisement([]byte{1, 'x'}, make([]byte, 22)); err == nil {
		t.Error("ParseAdvertisement() accepted service data with a nonzero marker")
	}
}

func TestParseAdvertisementShortManufacturerData(t *testing.T) {
	serviceData := []byte{0, 'p', 'i', 'd'}
	if _, err := ParseAdvertisement(serviceData, []byte{0x80, 3}); err == nil {
		t.Error("ParseAdvertisement() accepted truncated manufacturer data")
	}
}
