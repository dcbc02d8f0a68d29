package engine

import "sync"

var (
	sessionMu sync.RWMutex
	session   Transport
)

// Default returns the transport installed by Use, or ErrNotConnected.
// Library code takes a Transport argument and falls back to Default only
// when none was given.
func Default() (Transport, error) {
	sessionMu.RLock()
	defer sessionMu.RUnlock()
	if session == nil {
		return nil, ErrNotConnected
	}
	return session, nil
}

// Use installs t as the default transport and returns a function restoring
// the previous one.
//
//	restore := engine.Use(world)
//	defer restore()
func Use(t Transport) (restore func()) {
	sessionMu.Lock()
	prev := session
	session = t
	sessionMu.Unlock()

	return func() {
		sessionMu.Lock()
		session = prev
		sessionMu.Unlock()
	}
}
