package engine

import "go.uber.org/multierr"

// Close closes every open table's record store. Index artifacts are
// already durable on disk (each mutation persists or atomically replaces
// its generation, per spec.md §5), so only C1's file handle needs
// releasing.
func (e *Engine) Close() error {
	var err error
	for _, bt := range e.reg.all() {
		bt.mu.Lock()
		err = multierr.Append(err, bt.records.Close())
		bt.mu.Unlock()
	}
	return err
}
