package tuya

import "sync"

// observers holds the registered event handlers. Handlers fire
// synchronously, in registration order, decoupling the session from any
// presentation layer.
type observers struct {
	mu     sync.Mutex
	nextID int

	connected    []connectedHandler
	disconnected []disconnectedHandler
	datapoints   []datapointHandler
}

type connectedHandler struct {
	id int
	fn func()
}

type disconnectedHandler struct {
	id int
	fn func(err error)
}

type datapointHandler struct {
	id int
	fn func(changed []Datapoint)
}

// RegisterConnectedCallback registers a handler fired whenever the session
// reaches Active, including after a reconnect. The returned function
// unregisters it.
func (d *Device) RegisterConnectedCallback(fn func()) func() {
	o := &d.observers
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	id := o.nextID
	o.connected = append(o.connected, connectedHandler{id: id, fn: fn})
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, h := range o.connected {
			if h.id == id {
				o.connected = append(o.connected[:i], o.connected[i+1:]...)
				return
			}
		}
	}
}

// RegisterDisconnectedCallback registers a handler fired when the session
// ends. err is nil for an explicit Disconnect and non-nil (wrapping
// ErrConnectionLost) when the reconnect attempt limit is exhausted.
func (d *Device) RegisterDisconnectedCallback(fn func(err error)) func() {
	o := &d.observers
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	id := o.nextID
	o.disconnected = append(o.disconnected, disconnectedHandler{id: id, fn: fn})
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, h := range o.disconnected {
			if h.id == id {
				o.disconnected = append(o.disconnected[:i], o.disconnected[i+1:]...)
				return
			}
		}
	}
}

// RegisterCallback registers a handler for datapoint changes. One device
// report carrying several datapoints fires the handler once, with every
// changed datapoint.
func (d *Device) RegisterCallback(fn func(changed []Datapoint)) func() {
	o := &d.observers
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	id := o.nextID
	o.datapoints = append(o.datapoints, datapointHandler{id: id, fn: fn})
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, h := range o.datapoints {
			if h.id == id {
				o.datapoints = append(o.datapoints[:i], o.datapoints[i+1:]...)
				return
			}
		}
	}
}

func (d *Device) fireConnected() {
	d.observers.mu.Lock()
	handlers := make([]connectedHandler, len(d.observers.connected))
	copy(handlers, d.observers.connected)
	d.observers.mu.Unlock()
	for _, h := range handlers {
		h.fn()
	}
}

func (d *Device) fireDisconnected(err error) {
	d.observers.mu.Lock()
	handlers := make([]disconnectedHandler, len(d.observers.disconnected))
	copy(handlers, d.observers.disconnected)
	d.observers.mu.Unlock()
	for _, h := range handlers {
		h.fn(err)
	}
}

func (d *Device) fireDatapointsChanged(changed []Datapoint) {
	if len(changed) == 0 {
		return
	}
	d.observers.mu.Lock()
	handlers := make([]datapointHandler, len(d.observers.datapoints))
	copy(handlers, d.observers.datapoints)
	d.observers.mu.Unlock()
	for _, h := range handlers {
		h.fn(changed)
	}
}
