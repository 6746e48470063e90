package ledger

import "time"

// SetClock overrides the store clock in tests.
func (s *Store) SetClock(now func() time.Time) { s.now = now }
