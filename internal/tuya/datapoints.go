package tuya

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tuyago/tuya-ble/internal/tuya/protocol"
)

// Datapoint is one typed value exposed by the device, addressed by a small
// device-scoped id. The Value's runtime shape always matches Type: bool,
// int32 (VALUE), uint32 (ENUM), string, or []byte (RAW/BITMAP).
type Datapoint struct {
	ID        uint8
	Type      protocol.DPType
	Value     any
	Timestamp time.Time
	Flags     byte
	// ChangedByDevice is true when the last update came from a device
	// report that differed from the stored value.
	ChangedByDevice bool
}

// Bool returns the value of a BOOL datapoint.
func (d Datapoint) Bool() (bool, error) {
	v, ok := d.Value.(bool)
	if !ok {
		return false, fmt.Errorf("tuya: datapoint %d is %s, not bool", d.ID, d.Type)
	}
	return v, nil
}

// Int32 returns the value of a VALUE datapoint.
func (d Datapoint) Int32() (int32, error) {
	v, ok := d.Value.(int32)
	if !ok {
		return 0, fmt.Errorf("tuya: datapoint %d is %s, not value", d.ID, d.Type)
	}
	return v, nil
}

// Enum returns the value of an ENUM datapoint.
func (d Datapoint) Enum() (uint32, error) {
	v, ok := d.Value.(uint32)
	if !ok {
		return 0, fmt.Errorf("tuya: datapoint %d is %s, not enum", d.ID, d.Type)
	}
	return v, nil
}

// String returns the value of a STRING datapoint.
func (d Datapoint) String() (string, error) {
	v, ok := d.Value.(string)
	if !ok {
		return "", fmt.Errorf("tuya: datapoint %d is %s, not string", d.ID, d.Type)
	}
	return v, nil
}

// Bytes returns the value of a RAW or BITMAP datapoint.
func (d Datapoint) Bytes() ([]byte, error) {
	v, ok := d.Value.([]byte)
	if !ok {
		return nil, fmt.Errorf("tuya: datapoint %d is %s, not bytes", d.ID, d.Type)
	}
	return v, nil
}

// Datapoints is the typed registry of a device's datapoints. Entries are
// created on first observation or pre-registered with GetOrCreate, updated
// by Set calls and device reports, and survive reconnects; only an explicit
// device reset clears them.
type Datapoints struct {
	owner *Device

	mu         sync.Mutex
	dps        map[uint8]*Datapoint
	batchDepth int
	batchIDs   []uint8 // pending batch, insertion order
}

func newDatapoints(owner *Device) *Datapoints {
	return &Datapoints{
		owner: owner,
		dps:   make(map[uint8]*Datapoint),
	}
}

// Len returns the number of known datapoints.
func (ds *Datapoints) Len() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return len(ds.dps)
}

// Get returns a copy of the datapoint with the given id.
func (ds *Datapoints) Get(id uint8) (Datapoint, bool) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	dp, ok := ds.dps[id]
	if !ok {
		return Datapoint{}, false
	}
	return *dp, true
}

// All returns copies of every known datapoint, ordered by id.
func (ds *Datapoints) All() []Datapoint {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	out := make([]Datapoint, 0, len(ds.dps))
	for id := 0; id <= 0xFF; id++ {
		if dp, ok := ds.dps[uint8(id)]; ok {
			out = append(out, *dp)
		}
	}
	return out
}

// GetOrCreate returns the datapoint with the given id, registering it with
// the declared type and initial value if it does not exist yet.
func (ds *Datapoints) GetOrCreate(id uint8, t protocol.DPType, value any) (Datapoint, error) {
	if !t.Valid() {
		return Datapoint{}, fmt.Errorf("tuya: unknown datapoint type %d", uint8(t))
	}
	if value != nil {
		if _, err := protocol.EncodeValue(t, value); err != nil {
			return Datapoint{}, err
		}
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if dp, ok := ds.dps[id]; ok {
		return *dp, nil
	}
	dp := &Datapoint{ID: id, Type: t, Value: value, Timestamp: time.Now()}
	ds.dps[id] = dp
	return *dp, nil
}

// Set updates a datapoint and transmits it to the device. The value is
// validated against the declared type before anything changes; the registry
// is then updated optimistically and reconciled when the device reports
// back. Inside a BeginUpdate/EndUpdate batch the transmission is deferred.
func (ds *Datapoints) Set(ctx context.Context, id uint8, value any) error {
	ds.mu.Lock()
	dp, ok := ds.dps[id]
	if !ok {
		ds.mu.Unlock()
		return fmt.Errorf("tuya: datapoint %d is not registered", id)
	}
	raw, err := protocol.EncodeValue(dp.Type, value)
	if err != nil {
		ds.mu.Unlock()
		return err
	}
	// Store the canonical shape so Value is always comparable with what
	// the device will echo back.
	canonical, err := protocol.DecodeValue(dp.Type, raw)
	if err != nil {
		ds.mu.Unlock()
		return err
	}
	dp.Value = canonical
	dp.Timestamp = time.Now()
	dp.ChangedByDevice = false
	changed := []Datapoint{*dp}

	batched := ds.batchDepth > 0
	if batched {
		// A re-set of the same id moves it to the back, keeping call order.
		for i, existing := range ds.batchIDs {
			if existing == id {
				ds.batchIDs = append(ds.batchIDs[:i], ds.batchIDs[i+1:]...)
				break
			}
		}
		ds.batchIDs = append(ds.batchIDs, id)
	}
	ds.mu.Unlock()

	ds.owner.fireDatapointsChanged(changed)
	if batched {
		return nil
	}

	payload, err := ds.encodePayload([]uint8{id})
	if err != nil {
		return err
	}
	return ds.owner.sendDatapoints(ctx, payload)
}

// BeginUpdate starts accumulating Set calls without transmitting. Calls
// nest; only the outermost EndUpdate transmits.
func (ds *Datapoints) BeginUpdate() {
	ds.mu.Lock()
	ds.batchDepth++
	ds.mu.Unlock()
}

// EndUpdate closes a batch. The outermost call serializes all accumulated
// datapoints, in call order, into one combined frame and transmits it.
func (ds *Datapoints) EndUpdate(ctx context.Context) error {
	ds.mu.Lock()
	if ds.batchDepth == 0 {
		ds.mu.Unlock()
		return nil
	}
	ds.batchDepth--
	if ds.batchDepth > 0 || len(ds.batchIDs) == 0 {
		ds.mu.Unlock()
		return nil
	}
	ids := ds.batchIDs
	ds.batchIDs = nil
	ds.mu.Unlock()

	payload, err := ds.encodePayload(ids)
	if err != nil {
		return err
	}
	return ds.owner.sendDatapoints(ctx, payload)
}

// encodePayload serializes the given datapoints into one SEND_DPS payload.
func (ds *Datapoints) encodePayload(ids []uint8) ([]byte, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	var payload []byte
	for _, id := range ids {
		dp, ok := ds.dps[id]
		if !ok {
			continue
		}
		raw, err := protocol.EncodeValue(dp.Type, dp.Value)
		if err != nil {
			return nil, err
		}
		payload, err = protocol.AppendTLV(payload, id, dp.Type, raw)
		if err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// applyReports merges a parsed device report into the registry and returns
// the datapoints whose value actually changed. An acknowledgment echoing an
// optimistic Set is absorbed silently; a divergent one comes back as a
// correction.
func (ds *Datapoints) applyReports(reports []protocol.Report, ts time.Time, flags byte) []Datapoint {
	ds.mu.Lock()
	var changed []Datapoint
	for _, r := range reports {
		dp, ok := ds.dps[r.ID]
		if !ok {
			dp = &Datapoint{
				ID:              r.ID,
				Type:            r.Type,
				Value:           r.Value,
				Timestamp:       ts,
				Flags:           flags,
				ChangedByDevice: true,
			}
			ds.dps[r.ID] = dp
			changed = append(changed, *dp)
			continue
		}
		same := dp.Type == r.Type && valuesEqual(dp.Value, r.Value)
		dp.Type = r.Type
		dp.Value = r.Value
		dp.Timestamp = ts
		dp.Flags = flags
		dp.ChangedByDevice = !same
		if !same {
			changed = append(changed, *dp)
		}
	}
	ds.mu.Unlock()
	return changed
}

// resetState clears the registry. Only a full device reset does this; an
// ordinary disconnect keeps the last known values.
func (ds *Datapoints) resetState() {
	ds.mu.Lock()
	ds.dps = make(map[uint8]*Datapoint)
	ds.batchDepth = 0
	ds.batchIDs = nil
	ds.mu.Unlock()
}

func valuesEqual(a, b any) bool {
	if ab, ok := a.([]byte); ok {
		bb, ok := b.([]byte)
		return ok && bytes.Equal(ab, bb)
	}
	if _, ok := b.([]byte); ok {
		return false
	}
	return a == b
}
