package querycache

import "sync"

// layer is one optimistic edit over an entry's fetched value. Edits must
// not mutate their input; they return a new value.
type layer struct {
	id      uint64
	apply   func(any) any
	settled bool
}

// pendingLayers keeps the layers a freshly fetched base does not
// already reflect. Settled layers describe confirmed writes and are
// superseded by the new base.
func pendingLayers(layers []*layer) []*layer {
	var out []*layer
	for _, l := range layers {
		if !l.settled {
			out = append(out, l)
		}
	}
	return out
}

// PatchHandle controls one optimistic edit applied with Store.Patch.
//
// Edits on the same key compose in call order. Undoing one removes only
// that edit: the key's value is recomputed from the fetched base and
// the edits that remain, so other edits are never disturbed.
type PatchHandle struct {
	store   *Store
	key     Key
	layer   *layer
	before  any
	applied bool
	once    sync.Once
}

// Patch applies edit to the current value of key and returns a handle
// to undo, replace or commit it. Patching a key that holds no succeeded
// value is a no-op: there is nothing to edit, and the returned handle
// reports Applied() == false.
func (s *Store) Patch(key Key, edit func(any) any) *PatchHandle {
	s.mu.Lock()

	e, ok := s.entries[key]
	if !ok || e.status != StatusSucceeded {
		s.mu.Unlock()
		s.logger.Debug("patch skipped, no value to edit", "key", key)
		return &PatchHandle{store: s, key: key}
	}

	s.nextID++
	l := &layer{id: s.nextID, apply: edit}
	h := &PatchHandle{
		store:   s,
		key:     key,
		layer:   l,
		before:  e.value,
		applied: true,
	}

	e.layers = append(e.layers, l)
	e.recompute()
	ds := e.touch()
	s.mu.Unlock()

	s.metrics.patched(key, patchApplied)
	notify(ds)
	return h
}

// Key returns the key the handle edits.
func (h *PatchHandle) Key() Key {
	return h.key
}

// Applied reports whether the edit was applied to a value.
func (h *PatchHandle) Applied() bool {
	return h.applied
}

// Before returns the key's value immediately before the edit.
func (h *PatchHandle) Before() any {
	return h.before
}

// Undo removes the edit and recomputes the key's value. It is idempotent
// and safe to call after the edit was committed or the store was reset,
// in which case it does nothing.
func (h *PatchHandle) Undo() {
	if !h.applied {
		return
	}
	h.once.Do(func() {
		s := h.store
		s.mu.Lock()

		e, idx := h.locate()
		if e == nil || h.layer.settled {
			s.mu.Unlock()
			return
		}

		e.layers = append(e.layers[:idx:idx], e.layers[idx+1:]...)
		var ds []delivery
		if e.status == StatusSucceeded {
			e.recompute()
			ds = e.touch()
		}
		s.mu.Unlock()

		s.metrics.patched(h.key, patchUndone)
		notify(ds)
	})
}

// Replace swaps the edit for another one, keeping its position among the
// key's edits. It does nothing once the edit was undone.
func (h *PatchHandle) Replace(edit func(any) any) {
	if !h.applied {
		return
	}
	s := h.store
	s.mu.Lock()

	e, _ := h.locate()
	if e == nil {
		s.mu.Unlock()
		return
	}

	h.layer.apply = edit
	var ds []delivery
	if e.status == StatusSucceeded {
		e.recompute()
		ds = e.touch()
	}
	s.mu.Unlock()

	notify(ds)
}

// Commit marks the edit as confirmed. Confirmed edits at the bottom of
// the key's stack are folded into the base value; the next successful
// fetch replaces them with the server's view.
func (h *PatchHandle) Commit() {
	if !h.applied {
		return
	}
	s := h.store
	s.mu.Lock()
	defer s.mu.Unlock()

	e, _ := h.locate()
	if e == nil || h.layer.settled {
		return
	}

	h.layer.settled = true
	for len(e.layers) > 0 && e.layers[0].settled {
		e.base = e.layers[0].apply(e.base)
		e.layers = e.layers[1:]
	}
	s.metrics.patched(h.key, patchCommitted)
}

// locate finds the entry and position of the handle's layer.
// The caller holds the store lock.
func (h *PatchHandle) locate() (*entry, int) {
	e, ok := h.store.entries[h.key]
	if !ok {
		return nil, -1
	}
	for i, l := range e.layers {
		if l == h.layer {
			return e, i
		}
	}
	return nil, -1
}
