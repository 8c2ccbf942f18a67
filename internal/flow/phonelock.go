package flow

import "sync"

// PhoneLocks serializes message processing per phone number while leaving
// different phone numbers fully concurrent. Two messages from the same phone
// arriving together would otherwise race on the conversation row's
// read-modify-write.
type PhoneLocks struct {
	mu    sync.Mutex
	locks map[string]*phoneLock
}

type phoneLock struct {
	mu   sync.Mutex
	refs int
}

// NewPhoneLocks creates an empty lock set.
func NewPhoneLocks() *PhoneLocks {
	return &PhoneLocks{locks: make(map[string]*phoneLock)}
}

// Lock blocks until the per-phone lock is held and returns its release
// function. Entries are removed once no goroutine holds or waits on them.
func (p *PhoneLocks) Lock(phone string) func() {
	p.mu.Lock()
	l, ok := p.locks[phone]
	if !ok {
		l = &phoneLock{}
		p.locks[phone] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, phone)
		}
		p.mu.Unlock()
	}
}
