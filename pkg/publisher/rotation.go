package publisher

// Rotation is a round-robin cursor over a fixed endpoint list. It is not safe
// for concurrent use; the delivery worker is its only caller.
type Rotation struct {
	endpoints []string
	next      int
}

// NewRotation creates a rotation starting at the first endpoint.
func NewRotation(endpoints []string) *Rotation {
	return &Rotation{endpoints: append([]string(nil), endpoints...)}
}

// Next returns the current endpoint and advances the cursor, wrapping at the
// end of the list. It returns "" for an empty rotation.
func (r *Rotation) Next() string {
	if len(r.endpoints) == 0 {
		return ""
	}
	endpoint := r.endpoints[r.next]
	r.next = (r.next + 1) % len(r.endpoints)
	return endpoint
}

// Endpoints returns a copy of the endpoint list.
func (r *Rotation) Endpoints() []string {
	return append([]string(nil), r.endpoints...)
}
