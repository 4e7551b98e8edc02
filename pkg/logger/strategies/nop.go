package strategies

// Nop discards all log entries
type Nop struct{}

// NewNop creates a new Nop strategy
func NewNop() *Nop {
	return &Nop{}
}

// Log does nothing
func (n *Nop) Log(entry Entry) error {
	return nil
}

// Sync does nothing
func (n *Nop) Sync() error {
	return nil
}
