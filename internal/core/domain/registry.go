package domain

// Registry is an append-only collection of accepted location sets, indexed
// by id in registration order. A Registry handed to the validator is treated
// as an immutable snapshot; Append is only called by the owner of the
// registry while it holds the registration lock.
type Registry struct {
	ids       []LocationSetID
	sets      map[LocationSetID]LocationSet
	locations int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sets: make(map[LocationSetID]LocationSet)}
}

// Append adds a set under id. It returns ErrDuplicate if id is known.
func (r *Registry) Append(id LocationSetID, set LocationSet) error {
	if _, ok := r.sets[id]; ok {
		return ErrDuplicate
	}
	r.ids = append(r.ids, id)
	r.sets[id] = set.Clone()
	r.locations += len(set.Locations)
	return nil
}

// Contains reports whether id is registered.
func (r *Registry) Contains(id LocationSetID) bool {
	_, ok := r.sets[id]
	return ok
}

// Lookup returns the set registered under id.
func (r *Registry) Lookup(id LocationSetID) (LocationSet, bool) {
	s, ok := r.sets[id]
	return s, ok
}

// IDs returns the known ids in registration order.
func (r *Registry) IDs() []LocationSetID {
	return append([]LocationSetID(nil), r.ids...)
}

// Len returns the number of registered sets.
func (r *Registry) Len() int { return len(r.ids) }

// LocationCount returns the total number of registered locations.
func (r *Registry) LocationCount() int { return r.locations }

// Clone returns an independent copy, safe to mutate without affecting r.
func (r *Registry) Clone() *Registry {
	c := &Registry{
		ids:       append([]LocationSetID(nil), r.ids...),
		sets:      make(map[LocationSetID]LocationSet, len(r.sets)),
		locations: r.locations,
	}
	for id, s := range r.sets {
		c.sets[id] = s
	}
	return c
}
