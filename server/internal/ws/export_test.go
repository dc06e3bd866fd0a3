package ws

// SetUpgradedHook installs fn to run after the upgrade and before the client
// is registered.
func SetUpgradedHook(h *Hub, fn func(id string)) {
	h.mu.Lock()
	h.upgraded = fn
	h.mu.Unlock()
}
