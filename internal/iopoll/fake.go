package iopoll

import "time"

// registration records the state of one fd's callback registration inside
// a FakePoller.
type registration struct {
	interest Interest
	trigger  Trigger
	cb       Callback
}

// FakePoller is an in-memory Poller for unit tests. Tests drive it
// directly: register a device's socket, then call Fire to simulate
// readiness or a wakeup tick.
type FakePoller struct {
	regs map[int]*registration

	// WakeupCount tracks how many times ConfigCallback(fd, TriggerWakeup)
	// was requested for a given fd, so tests can assert "armed exactly
	// once".
	WakeupCount map[int]int
}

// NewFakePoller returns an empty FakePoller.
func NewFakePoller() *FakePoller {
	return &FakePoller{
		regs:        make(map[int]*registration),
		WakeupCount: make(map[int]int),
	}
}

// AddCallback implements Poller.
func (p *FakePoller) AddCallback(fd int, interest Interest, cb Callback) error {
	p.regs[fd] = &registration{interest: interest, cb: cb}
	return nil
}

// ConfigCallback implements Poller.
func (p *FakePoller) ConfigCallback(fd int, trigger Trigger) error {
	reg, ok := p.regs[fd]
	if !ok {
		return nil
	}
	reg.trigger = trigger
	if trigger == TriggerWakeup {
		p.WakeupCount[fd]++
	}
	return nil
}

// RemoveCallback implements Poller.
func (p *FakePoller) RemoveCallback(fd int) error {
	delete(p.regs, fd)
	return nil
}

// Trigger reports the current arm state of fd, for assertions.
func (p *FakePoller) Trigger(fd int) Trigger {
	if reg, ok := p.regs[fd]; ok {
		return reg.trigger
	}
	return TriggerNone
}

// Registered reports whether fd currently has a callback registered.
func (p *FakePoller) Registered(fd int) bool {
	_, ok := p.regs[fd]
	return ok
}

// Fire invokes the callback registered for fd with the given readiness
// mask, simulating the poll facility observing that event.
func (p *FakePoller) Fire(fd int, revents Interest) error {
	reg, ok := p.regs[fd]
	if !ok {
		return nil
	}
	return reg.cb(fd, revents)
}

// FireWakeup invokes fd's callback with a zero readiness mask if and only
// if TriggerWakeup is currently armed, then disarms it — mirroring a real
// poll facility firing a one-shot wakeup on the next thread tick.
func (p *FakePoller) FireWakeup(fd int) error {
	reg, ok := p.regs[fd]
	if !ok || reg.trigger != TriggerWakeup {
		return nil
	}
	reg.trigger = TriggerNone
	return reg.cb(fd, 0)
}

// fakeTimer is the Timer handle returned by FakeTimers.
type fakeTimer struct {
	fire func()
	owner *FakeTimers
	id    int
	fired bool
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	t.owner.cancel(t.id)
	return true
}

// FakeTimers is an in-memory Timers for deterministic tests of the suspend
// back-pressure policy: schedules are recorded, not slept on, and fired
// explicitly by the test.
type FakeTimers struct {
	next    int
	pending map[int]*fakeTimer
	delays  map[int]time.Duration
}

// NewFakeTimers returns an empty FakeTimers.
func NewFakeTimers() *FakeTimers {
	return &FakeTimers{
		pending: make(map[int]*fakeTimer),
		delays:  make(map[int]time.Duration),
	}
}

// AfterFunc implements Timers.
func (f *FakeTimers) AfterFunc(d time.Duration, fn func()) Timer {
	f.next++
	id := f.next
	t := &fakeTimer{fire: fn, owner: f, id: id}
	f.pending[id] = t
	f.delays[id] = d
	return t
}

func (f *FakeTimers) cancel(id int) {
	delete(f.pending, id)
	delete(f.delays, id)
}

// Pending reports how many schedules are currently outstanding.
func (f *FakeTimers) Pending() int {
	return len(f.pending)
}

// FireAll fires every pending timer whose delay is <= d and removes it,
// the way advancing a fake clock past a deadline would.
func (f *FakeTimers) FireAll(d time.Duration) {
	for id, delay := range f.delays {
		if delay > d {
			continue
		}
		t := f.pending[id]
		delete(f.pending, id)
		delete(f.delays, id)
		if t != nil && !t.stopped {
			t.fired = true
			t.fire()
		}
	}
}
