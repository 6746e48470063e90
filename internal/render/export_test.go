package render

// Hold marks path as being handled, as the live watch does.
func (t *Tracker) Hold(path string) bool { return t.claim(path) }

// Unhold releases a path taken with Hold.
func (t *Tracker) Unhold(path string) { t.release(path) }
