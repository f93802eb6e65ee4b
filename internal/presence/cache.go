package presence

// Cache remembers the last status handed to the transport so identical
// updates can be skipped. The zero value is empty and ready to use.
type Cache struct {
	last  Status
	valid bool
}

// Seen reports whether s equals the cached status.
func (c *Cache) Seen(s Status) bool {
	return c.valid && c.last == s
}

// Store records s as the last attempted status.
func (c *Cache) Store(s Status) {
	c.last = s
	c.valid = true
}

// Last returns the cached status and whether one is present.
func (c *Cache) Last() (Status, bool) {
	return c.last, c.valid
}

// Reset empties the cache so the next publish always transmits.
func (c *Cache) Reset() {
	c.last = Status{}
	c.valid = false
}
