// Package tuya implements the client side of the Tuya BLE v3 protocol: the
// session state machine (connect, handshake, pairing, datapoint sync,
// reconnect), sequence-number correlation of requests and responses, and
// the typed datapoint registry. The wire format lives in the protocol
// subpackage, the session crypto in the crypto subpackage; the BLE link and
// the credential store are collaborators supplied by the caller.
package tuya

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tuyago/tuya-ble/internal/devices"
	"github.com/tuyago/tuya-ble/internal/transport"
	tuyacrypto "github.com/tuyago/tuya-ble/internal/tuya/crypto"
	"github.com/tuyago/tuya-ble/internal/tuya/protocol"
)

// pairingRequestSize is the fixed, zero-padded length of the pairing
// payload: uuid + truncated local key + device id.
const pairingRequestSize = 44

// deviceInfoMinSize is the minimum device info response: versions, flags,
// the 6-byte handshake random and the 32-byte auth key.
const deviceInfoMinSize = 46

// Device is one Tuya BLE device session. All frame transmission for a
// session is strictly ordered; independent Devices share nothing but the
// credential store. Blocking operations take a context and suspend the
// calling goroutine until the response arrives or the session fails.
type Device struct {
	adapter transport.Adapter
	store   devices.Store
	address string
	opts    Options

	state atomic.Int32

	// mu protects the connection and session key material.
	mu                 sync.Mutex
	conn               transport.Connection
	writeChar          transport.Characteristic
	mtu                int
	creds              *devices.Credentials
	loginKey           []byte
	sessionKey         []byte
	authKey            []byte
	protoVersion       byte
	deviceVersion      string
	protocolVersion    string
	hardwareVersion    string
	deviceFlags        byte
	isBound            bool
	expectedDisconnect bool
	advName            string
	rssi               int

	// writeMu serializes outbound frame bursts so two frames never
	// interleave their fragmentation sequences.
	writeMu sync.Mutex

	// rxMu guards the reassembler fed by the notification callback.
	rxMu  sync.Mutex
	reasm protocol.Reassembler

	seq *correlator
	dps *Datapoints

	observers observers

	reconnecting atomic.Bool
	consecCRC    atomic.Uint32

	// Drop counters: corrupted frames are discarded, never delivered, but
	// stay countable for observability.
	crcErrors     atomic.Uint64
	droppedFrames atomic.Uint64
}

// NewDevice creates a session for the device at address. Credentials are
// looked up in store at connection time.
func NewDevice(adapter transport.Adapter, store devices.Store, address string, opts Options) *Device {
	opts.applyDefaults()
	d := &Device{
		adapter: adapter,
		store:   store,
		address: address,
		opts:    opts,
		seq:     newCorrelator(),
	}
	d.protoVersion = 3
	d.dps = newDatapoints(d)
	d.state.Store(int32(StateDisconnected))
	return d
}

// Address returns the device's transport address.
func (d *Device) Address() string {
	return d.address
}

// Name returns the stored device name, falling back to the advertised local
// name and then the address.
func (d *Device) Name() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.creds != nil && d.creds.DeviceName != "" {
		return d.creds.DeviceName
	}
	if d.advName != "" {
		return d.advName
	}
	return d.address
}

// ObserveAdvertisement records scan-time facts about the device: signal
// strength and the advertised local name. Callers that keep scanning while
// connected can feed every sighting in.
func (d *Device) ObserveAdvertisement(dev transport.Device) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rssi = dev.RSSI
	if dev.Name != "" {
		d.advName = dev.Name
	}
}

// RSSI returns the signal strength from the most recent advertisement
// sighting, or zero if the device was never scanned.
func (d *Device) RSSI() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rssi
}

// State returns the current session state.
func (d *Device) State() State {
	return State(d.state.Load())
}

// Datapoints returns the device's datapoint registry.
func (d *Device) Datapoints() *Datapoints {
	return d.dps
}

// DeviceVersion returns the firmware version reported in the handshake.
func (d *Device) DeviceVersion() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deviceVersion
}

// ProtocolVersion returns the protocol version reported in the handshake.
func (d *Device) ProtocolVersion() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.protocolVersion
}

// HardwareVersion returns the hardware version reported in the handshake.
func (d *Device) HardwareVersion() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hardwareVersion
}

// IsBound reports whether the device considers itself bound to an owner.
func (d *Device) IsBound() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isBound
}

// CRCErrors returns how many inbound frames were dropped for CRC failures.
func (d *Device) CRCErrors() uint64 {
	return d.crcErrors.Load()
}

// DroppedFrames returns how many inbound frames or fragments were dropped
// as malformed.
func (d *Device) DroppedFrames() uint64 {
	return d.droppedFrames.Load()
}

func (d *Device) setState(s State) {
	old := State(d.state.Swap(int32(s)))
	if old != s {
		slog.Debug("[TUYA] state", "address", d.address, "from", old.String(), "to", s.String())
	}
}

// Connect establishes the transport connection, performs the handshake and
// pairing with the stored credentials, pulls the initial datapoint state
// and leaves the session Active. Credential failures are terminal: Connect
// returns the error and never retries them.
func (d *Device) Connect(ctx context.Context) error {
	if d.State() != StateDisconnected {
		return fmt.Errorf("tuya: connect attempted in state %s", d.State())
	}
	d.mu.Lock()
	d.expectedDisconnect = false
	d.mu.Unlock()

	d.setState(StateConnecting)
	if err := d.establish(ctx); err != nil {
		d.setState(StateDisconnected)
		return err
	}
	d.fireConnected()
	return nil
}

// establish runs the full connect → handshake → sync sequence. On failure
// it tears the transport back down and leaves the caller to set the state.
func (d *Device) establish(ctx context.Context) (err error) {
	d.mu.Lock()
	if d.creds == nil {
		creds, ok := d.store.Get(d.address)
		if !ok {
			d.mu.Unlock()
			return fmt.Errorf("%w: no stored credentials for %s", ErrCredentials, d.address)
		}
		loginKey, kerr := tuyacrypto.LoginKey(creds.LocalKey)
		if kerr != nil {
			d.mu.Unlock()
			return fmt.Errorf("%w: %v", ErrCredentials, kerr)
		}
		d.creds = &creds
		d.loginKey = loginKey
	}
	d.mu.Unlock()

	if err := d.adapter.Enable(); err != nil {
		return fmt.Errorf("tuya: enable adapter: %w", err)
	}
	conn, err := d.adapter.Connect(ctx, d.address)
	if err != nil {
		return fmt.Errorf("tuya: connect to %s: %w", d.address, err)
	}
	defer func() {
		if err != nil {
			_ = conn.Disconnect()
			d.mu.Lock()
			if d.conn == conn {
				d.conn = nil
				d.writeChar = nil
				d.sessionKey = nil
			}
			d.mu.Unlock()
		}
	}()

	writeChar, err := conn.DiscoverCharacteristic(transport.ServiceUUID, transport.WriteCharUUID)
	if err != nil {
		return fmt.Errorf("tuya: discover write characteristic: %w", err)
	}
	notifyChar, err := conn.DiscoverCharacteristic(transport.ServiceUUID, transport.NotifyCharUUID)
	if err != nil {
		return fmt.Errorf("tuya: discover notify characteristic: %w", err)
	}
	if err := notifyChar.Subscribe(d.handleNotification); err != nil {
		return fmt.Errorf("tuya: subscribe notifications: %w", err)
	}

	mtu := conn.MTU()
	if mtu < 8 {
		mtu = transport.DefaultMTU
	}

	d.mu.Lock()
	d.conn = conn
	d.writeChar = writeChar
	d.mtu = mtu
	d.sessionKey = nil
	d.authKey = nil
	d.mu.Unlock()

	// Stale fragments from a prior session must never merge into this one.
	d.rxMu.Lock()
	d.reasm.Reset()
	d.rxMu.Unlock()
	d.consecCRC.Store(0)

	d.setState(StateHandshaking)
	if err := d.handshake(ctx); err != nil {
		return err
	}
	d.setState(StateReady)

	d.setState(StateSyncing)
	if _, err := d.request(ctx, protocol.CodeDeviceStatus, nil); err != nil {
		return fmt.Errorf("tuya: datapoint sync: %w", err)
	}
	d.setState(StateActive)

	// Arm auto-reconnect only once the session is fully up, so our own
	// teardown during a failed handshake never loops back in here.
	conn.OnDisconnect(d.onTransportDisconnect)
	slog.Info("[TUYA] connected", "address", d.address, "mtu", mtu)
	return nil
}

// handshake runs the key exchange and pairing. The device info response
// (handled in handleFrame) deposits the session key before the request
// resolves.
func (d *Device) handshake(ctx context.Context) error {
	if _, err := d.request(ctx, protocol.CodeDeviceInfo, nil); err != nil {
		return fmt.Errorf("tuya: device info exchange: %w", err)
	}

	d.mu.Lock()
	ready := d.sessionKey != nil
	pairing := d.buildPairingRequest()
	d.mu.Unlock()
	if !ready {
		return fmt.Errorf("%w: device info response carried no session material", ErrCredentials)
	}

	if _, err := d.request(ctx, protocol.CodePair, pairing); err != nil {
		var devErr *protocol.DeviceError
		if errors.As(err, &devErr) {
			return fmt.Errorf("%w: pairing rejected with code %d", ErrCredentials, devErr.Code)
		}
		return fmt.Errorf("tuya: pairing: %w", err)
	}
	return nil
}

// buildPairingRequest assembles uuid + local key + device id, zero-padded
// to the fixed request size. Caller must hold mu.
func (d *Device) buildPairingRequest() []byte {
	out := make([]byte, 0, pairingRequestSize)
	out = append(out, d.creds.UUID...)
	out = append(out, d.creds.LocalKey[:6]...)
	out = append(out, d.creds.DeviceID...)
	for len(out) < pairingRequestSize {
		out = append(out, 0)
	}
	return out
}

// Disconnect closes the session. Every pending request resolves with a
// cancellation error; the datapoint registry keeps its last known values.
func (d *Device) Disconnect() error {
	d.mu.Lock()
	d.expectedDisconnect = true
	conn := d.conn
	d.conn = nil
	d.writeChar = nil
	d.sessionKey = nil
	d.authKey = nil
	d.mu.Unlock()

	d.setState(StateDisconnecting)
	if conn != nil {
		_ = conn.Disconnect()
	}
	d.seq.reset(ErrCancelled)
	d.rxMu.Lock()
	d.reasm.Reset()
	d.rxMu.Unlock()
	d.setState(StateDisconnected)
	slog.Info("[TUYA] disconnected", "address", d.address)
	d.fireDisconnected(nil)
	return nil
}

// Update asks the device to re-report its full datapoint state.
func (d *Device) Update(ctx context.Context) error {
	_, err := d.request(ctx, protocol.CodeDeviceStatus, nil)
	return err
}

// Unbind asks the device to forget its binding. The credentials stop
// working once the device confirms.
func (d *Device) Unbind(ctx context.Context) error {
	_, err := d.request(ctx, protocol.CodeUnbind, nil)
	return err
}

// FactoryReset asks the device to reset itself. On confirmation the
// datapoint registry is cleared — the device's state is gone with it.
func (d *Device) FactoryReset(ctx context.Context) error {
	if _, err := d.request(ctx, protocol.CodeDeviceReset, nil); err != nil {
		return err
	}
	d.dps.resetState()
	return nil
}

// sendDatapoints transmits one SEND_DPS payload and waits for the
// acknowledgment.
func (d *Device) sendDatapoints(ctx context.Context, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	_, err := d.request(ctx, protocol.CodeSendDPs, payload)
	return err
}

// request sends a frame expecting a response and suspends until the
// correlator resolves its sequence number, the per-request timeout fires,
// or ctx is cancelled. A cancelled request is removed from the correlator;
// the frame already sent is not unsent, and a late response is discarded.
func (d *Device) request(ctx context.Context, code protocol.Code, payload []byte) (*protocol.Frame, error) {
	seq := d.seq.nextSeq()
	ch := d.seq.register(seq)
	if err := d.send(seq, 0, code, payload); err != nil {
		d.seq.drop(seq)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, d.opts.RequestTimeout)
	defer cancel()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		return r.frame, nil
	case <-ctx.Done():
		d.seq.drop(seq)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no response to %s #%d", ErrTimeout, code, seq)
		}
		return nil, fmt.Errorf("%w: %s #%d: %v", ErrCancelled, code, seq, ctx.Err())
	}
}

// send encodes, encrypts, fragments and writes one frame. The device info
// request is the only frame under the login key; everything later uses the
// session key.
func (d *Device) send(seqNum, responseTo uint32, code protocol.Code, payload []byte) error {
	d.mu.Lock()
	writeChar := d.writeChar
	mtu := d.mtu
	version := d.protoVersion
	var key []byte
	flag := protocol.FlagSessionKey
	if code == protocol.CodeDeviceInfo {
		key = d.loginKey
		flag = protocol.FlagLoginKey
	} else {
		key = d.sessionKey
	}
	d.mu.Unlock()

	if writeChar == nil {
		return ErrNotConnected
	}
	if key == nil {
		return fmt.Errorf("%w: session key not established", ErrNotConnected)
	}

	frame := &protocol.Frame{SeqNum: seqNum, ResponseTo: responseTo, Code: code, Payload: payload}
	envelope, err := frame.Encode(key, flag)
	if err != nil {
		return err
	}
	chunks, err := protocol.Fragment(envelope, mtu, version)
	if err != nil {
		return err
	}

	slog.Debug("[TUYA] sending", "address", d.address, "seq", seqNum, "code", code.String(), "chunks", len(chunks))

	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	for i, chunk := range chunks {
		if err := writeChar.Write(chunk); err != nil {
			return fmt.Errorf("tuya: write chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if i < len(chunks)-1 && d.opts.InterChunkDelay > 0 {
			time.Sleep(d.opts.InterChunkDelay)
		}
	}
	return nil
}

// sendResponse answers a device-initiated frame. Fired from the receive
// path, so it runs on its own goroutine and only logs failures.
func (d *Device) sendResponse(code protocol.Code, payload []byte, responseTo uint32) {
	seq := d.seq.nextSeq()
	if err := d.send(seq, responseTo, code, payload); err != nil {
		slog.Warn("[TUYA] failed to answer device frame", "address", d.address, "code", code.String(), "error", err)
	}
}

// keyFor resolves the decryption key for an inbound frame's security flag.
func (d *Device) keyFor(flag protocol.SecurityFlag) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch flag {
	case protocol.FlagAuthKey:
		return d.authKey
	case protocol.FlagLoginKey:
		return d.loginKey
	case protocol.FlagSessionKey:
		return d.sessionKey
	}
	return nil
}

// handleNotification is the transport callback: reassemble, decode, route.
// Corrupted input is dropped and counted here and never reaches a higher
// layer; a run of CRC failures is treated as key desync and forces a
// re-handshake through the reconnect path.
func (d *Device) handleNotification(data []byte) {
	d.rxMu.Lock()
	envelope, err := d.reasm.Feed(data)
	d.rxMu.Unlock()
	if err != nil {
		d.droppedFrames.Add(1)
		slog.Warn("[TUYA] dropped fragment", "address", d.address, "error", err)
		return
	}
	if envelope == nil {
		return
	}

	frame, err := protocol.Decode(envelope, d.keyFor)
	if err != nil {
		switch {
		case errors.Is(err, protocol.ErrCRC):
			d.crcErrors.Add(1)
			slog.Warn("[TUYA] dropped frame with bad CRC", "address", d.address, "error", err)
			if int(d.consecCRC.Add(1)) >= d.opts.CRCFailureThreshold {
				slog.Warn("[TUYA] repeated CRC failures, assuming stale session key", "address", d.address)
				d.fatalFrameError()
			}
		case errors.Is(err, tuyacrypto.ErrDecryption):
			slog.Warn("[TUYA] decryption failed, re-handshaking", "address", d.address, "error", err)
			d.fatalFrameError()
		default:
			d.droppedFrames.Add(1)
			slog.Warn("[TUYA] dropped malformed frame", "address", d.address, "error", err)
		}
		return
	}
	d.consecCRC.Store(0)
	d.handleFrame(frame)
}

// handleFrame applies one decoded frame: session material and results for
// handshake responses, registry updates for reports, clock answers for
// time requests, and finally correlation back to the pending request.
func (d *Device) handleFrame(f *protocol.Frame) {
	slog.Debug("[TUYA] received", "address", d.address, "seq", f.SeqNum, "code", f.Code.String(), "responseTo", f.ResponseTo)

	result := 0
	var handleErr error

	switch f.Code {
	case protocol.CodeDeviceInfo:
		handleErr = d.applyDeviceInfo(f.Payload)

	case protocol.CodePair:
		if len(f.Payload) != 1 {
			handleErr = fmt.Errorf("%w: pairing response is %d bytes", protocol.ErrDataLength, len(f.Payload))
			break
		}
		result = int(f.Payload[0])
		if result == 2 {
			slog.Debug("[TUYA] device already paired", "address", d.address)
			result = 0
		}

	case protocol.CodeDeviceStatus, protocol.CodeSendDPs,
		protocol.CodeUnbind, protocol.CodeDeviceReset:
		if len(f.Payload) != 1 {
			handleErr = fmt.Errorf("%w: result is %d bytes", protocol.ErrDataLength, len(f.Payload))
			break
		}
		result = int(f.Payload[0])

	case protocol.CodeReceiveDP:
		d.applyReportFrame(f, f.Payload, time.Now(), 0, nil)

	case protocol.CodeReceiveSignDP:
		if len(f.Payload) < 3 {
			handleErr = fmt.Errorf("%w: signed report is %d bytes", protocol.ErrDataLength, len(f.Payload))
			break
		}
		dpSeq := binary.BigEndian.Uint16(f.Payload[:2])
		flags := f.Payload[2]
		ack := make([]byte, 0, 4)
		ack = binary.BigEndian.AppendUint16(ack, dpSeq)
		ack = append(ack, flags, 0)
		d.applyReportFrame(f, f.Payload[3:], time.Now(), flags, ack)

	case protocol.CodeReceiveTimeDP:
		ts, pos, err := parseTimestamp(f.Payload)
		if err != nil {
			handleErr = err
			break
		}
		d.applyReportFrame(f, f.Payload[pos:], ts, 0, nil)

	case protocol.CodeReceiveSignTimeDP:
		if len(f.Payload) < 3 {
			handleErr = fmt.Errorf("%w: signed report is %d bytes", protocol.ErrDataLength, len(f.Payload))
			break
		}
		dpSeq := binary.BigEndian.Uint16(f.Payload[:2])
		flags := f.Payload[2]
		ts, pos, err := parseTimestamp(f.Payload[3:])
		if err != nil {
			handleErr = err
			break
		}
		ack := make([]byte, 0, 4)
		ack = binary.BigEndian.AppendUint16(ack, dpSeq)
		ack = append(ack, flags, 0)
		d.applyReportFrame(f, f.Payload[3+pos:], ts, flags, ack)

	case protocol.CodeTime1Request:
		go d.sendResponse(f.Code, time1Payload(time.Now()), f.SeqNum)

	case protocol.CodeTime2Request:
		go d.sendResponse(f.Code, time2Payload(time.Now()), f.SeqNum)

	default:
		// Responses still get correlated below so the pending caller sees
		// the frame instead of timing out; unsolicited unknowns are dropped.
		if f.ResponseTo == 0 {
			d.droppedFrames.Add(1)
			slog.Debug("[TUYA] unknown frame code dropped", "address", d.address, "code", f.Code.String(), "seq", f.SeqNum)
			return
		}
		slog.Debug("[TUYA] response with unhandled code", "address", d.address, "code", f.Code.String(), "responseTo", f.ResponseTo)
	}

	if handleErr != nil {
		d.droppedFrames.Add(1)
		slog.Warn("[TUYA] bad frame payload", "address", d.address, "code", f.Code.String(), "error", handleErr)
	}

	if f.ResponseTo != 0 {
		err := handleErr
		if err == nil && result != 0 {
			err = &protocol.DeviceError{Code: result}
		}
		if !d.seq.resolve(f.ResponseTo, response{frame: f, err: err}) {
			// Stale or cancelled request; the distinction from a report was
			// already made by command code.
			slog.Debug("[TUYA] stale response discarded", "address", d.address, "responseTo", f.ResponseTo)
		}
	}
}

// applyReportFrame parses a datapoint TLV stream, merges it into the
// registry, fires the change event once per affected datapoint set, and
// acknowledges the report to the device.
func (d *Device) applyReportFrame(f *protocol.Frame, tlvs []byte, ts time.Time, flags byte, ack []byte) {
	reports, err := protocol.ParseReports(tlvs)
	if err != nil {
		d.droppedFrames.Add(1)
		slog.Warn("[TUYA] dropped malformed datapoint report", "address", d.address, "error", err)
		return
	}
	changed := d.dps.applyReports(reports, ts, flags)
	slog.Debug("[TUYA] datapoint report", "address", d.address, "reported", len(reports), "changed", len(changed))
	go d.sendResponse(f.Code, ack, f.SeqNum)
	d.fireDatapointsChanged(changed)
}

// applyDeviceInfo digests the handshake response: version strings, the
// handshake random that finalizes the session key, and the auth key.
func (d *Device) applyDeviceInfo(data []byte) error {
	if len(data) < deviceInfoMinSize {
		return fmt.Errorf("%w: device info response is %d bytes, need %d", protocol.ErrDataLength, len(data), deviceInfoMinSize)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	sessionKey, err := tuyacrypto.SessionKey(d.creds.LocalKey, data[6:12])
	if err != nil {
		return err
	}

	d.deviceVersion = fmt.Sprintf("%d.%d", data[0], data[1])
	d.protocolVersion = fmt.Sprintf("%d.%d", data[2], data[3])
	d.hardwareVersion = fmt.Sprintf("%d.%d", data[12], data[13])
	d.protoVersion = data[2]
	d.deviceFlags = data[4]
	d.isBound = data[5] != 0
	d.sessionKey = sessionKey
	d.authKey = append([]byte(nil), data[14:46]...)
	return nil
}

// onTransportDisconnect fires when the link drops underneath an Active
// session.
func (d *Device) onTransportDisconnect() {
	d.beginReconnect()
}

// fatalFrameError handles a frame-error pattern that indicates session
// desync: tear the link down and go through the reconnect (and thus
// re-handshake) path.
func (d *Device) fatalFrameError() {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn != nil {
		_ = conn.Disconnect()
	}
	d.beginReconnect()
}

func (d *Device) beginReconnect() {
	d.mu.Lock()
	if d.expectedDisconnect {
		d.mu.Unlock()
		return
	}
	d.conn = nil
	d.writeChar = nil
	d.sessionKey = nil
	d.mu.Unlock()

	d.seq.failAll(ErrConnectionLost)

	if !d.reconnecting.CompareAndSwap(false, true) {
		return
	}
	d.setState(StateReconnecting)
	slog.Warn("[TUYA] connection lost, reconnecting", "address", d.address)
	go d.reconnectLoop()
}

// reconnectLoop retries the full connect sequence with bounded exponential
// backoff. Exhausting the attempt limit settles the session in Disconnected
// and surfaces a terminal connection-lost event; the datapoint registry
// keeps its last known values either way.
func (d *Device) reconnectLoop() {
	defer d.reconnecting.Store(false)

	var lastErr error
	for attempt := 0; attempt < d.opts.ReconnectMaxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt-1, d.opts.ReconnectMaxBackoff)
			slog.Info("[TUYA] reconnect backoff", "address", d.address, "attempt", attempt+1, "delay", delay)
			time.Sleep(delay)
		}

		d.mu.Lock()
		stopped := d.expectedDisconnect
		d.mu.Unlock()
		if stopped {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), d.opts.ConnectTimeout)
		err := d.establish(ctx)
		cancel()
		if err == nil {
			slog.Info("[TUYA] reconnected", "address", d.address)
			d.fireConnected()
			return
		}
		lastErr = err
		slog.Warn("[TUYA] reconnect failed", "address", d.address, "attempt", attempt+1, "error", err)
		if errors.Is(err, ErrCredentials) {
			// Retrying against the same bad credentials cannot succeed.
			break
		}
	}

	d.seq.reset(ErrConnectionLost)
	d.setState(StateDisconnected)
	terminal := fmt.Errorf("%w: gave up after %d attempts: %v", ErrConnectionLost, d.opts.ReconnectMaxAttempts, lastErr)
	slog.Error("[TUYA] reconnect exhausted", "address", d.address, "error", terminal)
	d.fireDisconnected(terminal)
}

// parseTimestamp decodes the timestamp prefix of timestamped DP reports:
// type 0 is 13 ASCII decimal digits of milliseconds, type 1 a big-endian
// 32-bit seconds value.
func parseTimestamp(data []byte) (time.Time, int, error) {
	if len(data) < 1 {
		return time.Time{}, 0, fmt.Errorf("%w: empty timestamp", protocol.ErrDataLength)
	}
	switch data[0] {
	case 0:
		if len(data) < 14 {
			return time.Time{}, 0, fmt.Errorf("%w: millisecond timestamp is %d bytes", protocol.ErrDataLength, len(data)-1)
		}
		ms, err := strconv.ParseInt(string(data[1:14]), 10, 64)
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("%w: timestamp %q", protocol.ErrFormat, data[1:14])
		}
		return time.UnixMilli(ms), 14, nil
	case 1:
		if len(data) < 5 {
			return time.Time{}, 0, fmt.Errorf("%w: second timestamp is %d bytes", protocol.ErrDataLength, len(data)-1)
		}
		secs := binary.BigEndian.Uint32(data[1:5])
		return time.Unix(int64(secs), 0), 5, nil
	}
	return time.Time{}, 0, fmt.Errorf("%w: unknown timestamp type %d", protocol.ErrFormat, data[0])
}

// time1Payload answers TIME1_REQUEST: decimal Unix milliseconds followed by
// the UTC offset in hundredths of an hour.
func time1Payload(now time.Time) []byte {
	_, offset := now.Zone()
	buf := []byte(strconv.FormatInt(now.UnixMilli(), 10))
	return binary.BigEndian.AppendUint16(buf, uint16(int16(offset/36)))
}

// time2Payload answers TIME2_REQUEST: broken-down local time plus the same
// UTC offset. The protocol counts weekdays from Monday.
func time2Payload(now time.Time) []byte {
	_, offset := now.Zone()
	weekday := (int(now.Weekday()) + 6) % 7
	buf := []byte{
		byte(now.Year() % 100),
		byte(now.Month()),
		byte(now.Day()),
		byte(now.Hour()),
		byte(now.Minute()),
		byte(now.Second()),
		byte(weekday),
	}
	return binary.BigEndian.AppendUint16(buf, uint16(int16(offset/36)))
}
