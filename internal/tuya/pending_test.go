package tuya

import (
	"errors"
	"sync"
	"testing"

	"github.com/tuyago/tuya-ble/internal/tuya/protocol"
)

func TestCorrelatorNeverIssuesZero(t *testing.T) {
	c := newCorrelator()
	c.next = 0xFFFFFFFF
	if seq := c.nextSeq(); seq != 0xFFFFFFFF {
		t.Errorf("nextSeq() = %d, want 0xFFFFFFFF", seq)
	}
	// The wrap must skip zero, which the protocol reserves.
	if seq := c.nextSeq(); seq != 1 {
		t.Errorf("nextSeq() after wrap = %d, want 1", seq)
	}
}

func TestCorrelatorSkipsOutstandingOnWrap(t *testing.T) {
	c := newCorrelator()
	c.register(1)
	c.next = 0xFFFFFFFF
	c.nextSeq() // 0xFFFFFFFF
	if seq := c.nextSeq(); seq != 2 {
		t.Errorf("nextSeq() = %d, want 2 (1 is still pending)", seq)
	}
}

func TestCorrelatorResolve(t *testing.T) {
	c := newCorrelator()
	seq := c.nextSeq()
	ch := c.register(seq)

	frame := &protocol.Frame{SeqNum: 50, ResponseTo: seq}
	if !c.resolve(seq, response{frame: frame}) {
		t.Fatal("resolve() found no waiter")
	}
	r := <-ch
	if r.frame != frame || r.err != nil {
		t.Errorf("resolved response = %+v", r)
	}
	// A second response for the same sequence has nowhere to go.
	if c.resolve(seq, response{frame: frame}) {
		t.Error("resolve() matched an already-resolved sequence")
	}
}

func TestCorrelatorDrop(t *testing.T) {
	c := newCorrelator()
	seq := c.nextSeq()
	c.register(seq)
	c.drop(seq)
	if c.resolve(seq, response{}) {
		t.Error("resolve() matched a dropped sequence")
	}
}

func TestCorrelatorResolveBeforeWait(t *testing.T) {
	// The response can arrive while the requester is still between send and
	// select; the buffered channel must hold it.
	c := newCorrelator()
	seq := c.nextSeq()
	ch := c.register(seq)
	if !c.resolve(seq, response{frame: &protocol.Frame{}}) {
		t.Fatal("resolve() found no waiter")
	}
	select {
	case <-ch:
	default:
		t.Error("buffered response was lost")
	}
}

func TestCorrelatorFailAll(t *testing.T) {
	c := newCorrelator()
	var chans []<-chan response
	for i := 0; i < 5; i++ {
		seq := c.nextSeq()
		chans = append(chans, c.register(seq))
	}
	sentinel := errors.New("link down")
	c.failAll(sentinel)
	for i, ch := range chans {
		select {
		case r := <-ch:
			if !errors.Is(r.err, sentinel) {
				t.Errorf("waiter %d got error %v, want sentinel", i, r.err)
			}
		default:
			t.Errorf("waiter %d was left hanging", i)
		}
	}
}

func TestCorrelatorReset(t *testing.T) {
	c := newCorrelator()
	for i := 0; i < 10; i++ {
		c.nextSeq()
	}
	c.reset(errors.New("session over"))
	if seq := c.nextSeq(); seq != 1 {
		t.Errorf("nextSeq() after reset = %d, want 1", seq)
	}
}

func TestCorrelatorConcurrent(t *testing.T) {
	c := newCorrelator()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq := c.nextSeq()
			ch := c.register(seq)
			go c.resolve(seq, response{frame: &protocol.Frame{ResponseTo: seq}})
			r := <-ch
			if r.frame.ResponseTo != seq {
				t.Errorf("got response for %d, want %d", r.frame.ResponseTo, seq)
			}
		}()
	}
	wg.Wait()
}
