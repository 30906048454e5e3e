package snapshot

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/bone"
)

// Store holds the snapshots of one instance keyed by bone name.
// It is owned by that instance and never shared.
type Store struct {
	snapshots map[string]*BoneSnapshot
}

// NewStore creates an empty Store.
//
// Returns:
//   - *Store: the new store
func NewStore() *Store {
	return &Store{snapshots: make(map[string]*BoneSnapshot)}
}

// Sync creates a snapshot, seeded at rest, for every bone of the graph not yet recorded.
// Existing snapshots are left untouched.
//
// Parameters:
//   - g: the bone graph
//
// Returns:
//   - int: the number of snapshots created
func (st *Store) Sync(g bone.Graph) int {
	if g == nil {
		return 0
	}
	var created int
	for _, name := range g.Names() {
		if _, ok := st.snapshots[name]; ok {
			continue
		}
		initial, _ := g.InitialSnapshot(name)
		st.snapshots[name] = New(name, initial)
		created++
	}
	return created
}

// Get returns the snapshot for a bone.
//
// Parameters:
//   - name: the bone name
//
// Returns:
//   - *BoneSnapshot: the snapshot, or nil
//   - bool: true if a snapshot exists
func (st *Store) Get(name string) (*BoneSnapshot, bool) {
	s, ok := st.snapshots[name]
	return s, ok
}

// Put stores a snapshot under its bone name.
func (st *Store) Put(s *BoneSnapshot) {
	st.snapshots[s.Bone] = s
}

// CopyOf returns independent copies of the snapshots for the named bones. Names without a
// snapshot are omitted.
//
// Parameters:
//   - names: the bones to copy
//
// Returns:
//   - map[string]*BoneSnapshot: the copies keyed by bone name
func (st *Store) CopyOf(names []string) map[string]*BoneSnapshot {
	out := make(map[string]*BoneSnapshot, len(names))
	for _, name := range names {
		if s, ok := st.snapshots[name]; ok {
			out[name] = s.Copy()
		}
	}
	return out
}

// Len returns the number of recorded snapshots.
func (st *Store) Len() int {
	return len(st.snapshots)
}

// Clear discards every snapshot. They are recreated at rest on the next Sync.
func (st *Store) Clear() {
	st.snapshots = make(map[string]*BoneSnapshot)
}
