package knowledge

import "sync"

// Editor is the UI-facing mutation session for the knowledge base. All edits
// go through a working copy of the full mapping and are serialized by a
// mutex, so concurrent editors cannot lose each other's updates. Save
// persists the working copy; Cancel reverts to the last-persisted snapshot.
type Editor struct {
	mu      sync.Mutex
	store   *Store
	working Base
	prev    Base
}

func NewEditor(store *Store) *Editor {
	return &Editor{store: store}
}

// Begin loads the persisted base and snapshots it for a later Cancel.
func (e *Editor) Begin() Base {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.working = e.store.Load(false)
	e.prev = e.working.Clone()
	return e.working
}

func (e *Editor) AddCategory(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.working.AddCategory(name)
}

func (e *Editor) RenameCategory(oldName, newName string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.working.RenameCategory(oldName, newName)
}

func (e *Editor) RemoveCategory(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.working.RemoveCategory(name)
}

func (e *Editor) AddItem(category, item string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.working.AddItem(category, item)
}

func (e *Editor) RemoveItem(category, item string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.working.RemoveItem(category, item)
}

// Save persists the working copy and makes it the new revert point.
func (e *Editor) Save() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.Save(e.working); err != nil {
		return err
	}
	e.prev = e.working.Clone()
	return nil
}

// Cancel discards staged edits and restores the last-persisted snapshot.
func (e *Editor) Cancel() Base {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.working = e.prev.Clone()
	return e.working
}

// Reset discards everything, including persisted edits, and reloads the
// shipped default set.
func (e *Editor) Reset() Base {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.working = e.store.Reset()
	e.prev = e.working.Clone()
	return e.working
}
