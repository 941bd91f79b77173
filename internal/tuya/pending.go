package tuya

import (
	"sync"

	"github.com/tuyago/tuya-ble/internal/tuya/protocol"
)

// response is what a pending request resolves to: the matched frame or the
// error that ended the wait.
type response struct {
	frame *protocol.Frame
	err   error
}

// correlator assigns sequence numbers to outbound requests and matches
// inbound responses back to the waiting caller. Every channel is buffered
// so a response arriving before the caller starts waiting is never lost,
// and a late response for an abandoned request is dropped without blocking
// the receive path.
type correlator struct {
	mu      sync.Mutex
	next    uint32
	pending map[uint32]chan response
}

func newCorrelator() *correlator {
	return &correlator{
		next:    1,
		pending: make(map[uint32]chan response),
	}
}

// nextSeq returns the next sequence number. Zero is never issued: the
// protocol reserves it to mean "not a response".
func (c *correlator) nextSeq() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		seq := c.next
		c.next++
		if c.next == 0 {
			c.next = 1
		}
		// Skip numbers still outstanding after a wrap.
		if _, busy := c.pending[seq]; !busy && seq != 0 {
			return seq
		}
	}
}

// register creates the pending entry for seq. Call before transmitting.
func (c *correlator) register(seq uint32) <-chan response {
	ch := make(chan response, 1)
	c.mu.Lock()
	c.pending[seq] = ch
	c.mu.Unlock()
	return ch
}

// resolve dispatches a response to the caller waiting on seq and removes
// the entry. It reports whether anyone was waiting.
func (c *correlator) resolve(seq uint32, r response) bool {
	c.mu.Lock()
	ch, ok := c.pending[seq]
	delete(c.pending, seq)
	c.mu.Unlock()
	if !ok {
		return false
	}
	ch <- r
	return true
}

// drop removes the pending entry for seq without resolving it. Used on
// timeout and cancellation; a response arriving later is discarded.
func (c *correlator) drop(seq uint32) {
	c.mu.Lock()
	delete(c.pending, seq)
	c.mu.Unlock()
}

// failAll resolves every pending request with err. Nothing is left hanging
// when the session goes away.
func (c *correlator) failAll(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[uint32]chan response)
	c.mu.Unlock()
	for _, ch := range pending {
		ch <- response{err: err}
	}
}

// reset fails everything pending and restarts numbering, as a fresh session
// expects.
func (c *correlator) reset(err error) {
	c.failAll(err)
	c.mu.Lock()
	c.next = 1
	c.mu.Unlock()
}
