package sync

import (
	"sort"
)

// PendingSet is the set of local profiles that owe an upload to the remote
// store. It's filled by the pull pass and drained by the push pass.
type PendingSet map[string]struct{}

// NewPendingSet returns a PendingSet containing `names`.
func NewPendingSet(names ...string) PendingSet {
	set := PendingSet{}
	for _, name := range names {
		set.Add(name)
	}
	return set
}

// Add marks `name` as owing an upload.
func (set PendingSet) Add(name string) {
	set[name] = struct{}{}
}

// Has returns whether `name` owes an upload.
func (set PendingSet) Has(name string) bool {
	_, ok := set[name]
	return ok
}

// Remove drops `name` from the set.
func (set PendingSet) Remove(name string) {
	delete(set, name)
}

// Names returns the pending profiles in sorted order.
func (set PendingSet) Names() []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Copy returns an independent copy of the set.
func (set PendingSet) Copy() PendingSet {
	setCopy := PendingSet{}
	for name := range set {
		setCopy.Add(name)
	}
	return setCopy
}

// SessionSnapshot maps each local profile to its progress timestamp at the
// moment the game session started.
type SessionSnapshot map[string]int64

// StartTimestampOf returns the timestamp `name` had when the session started,
// or 0 if the profile didn't exist yet.
func (snapshot SessionSnapshot) StartTimestampOf(name string) int64 {
	return snapshot[name]
}
