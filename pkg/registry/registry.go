// Package registry keeps the master's view of devices on the bus.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robotalks/rs4b/pkg/caps"
	"github.com/robotalks/rs4b/pkg/ident"
)

// ErrUnknownDevice indicates the device was never discovered.
var ErrUnknownDevice = errors.New("unknown device")

// Entry is what the master knows about one device.
type Entry struct {
	UUID      ident.ID  `json:"uuid"`
	FirstSeen time.Time `json:"firstSeen"`
	LastSeen  time.Time `json:"lastSeen"`
	// Descriptor is nil until the device has been identified.
	Descriptor *caps.Descriptor `json:"descriptor,omitempty"`
}

// Identified tells if the descriptor is known.
func (e Entry) Identified() bool {
	return e.Descriptor != nil
}

// Observer is notified after an entry changes or is removed.
type Observer interface {
	EntryChanged(Entry)
	EntryRemoved(ident.ID)
}

// Registry is a set of entries keyed by device identifier.
type Registry struct {
	entries   map[ident.ID]*Entry
	observers []Observer
	lock      sync.RWMutex
	// notifyLock spans an update and its notifications so observers see
	// changes in the order they were applied.
	notifyLock sync.Mutex
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[ident.ID]*Entry)}
}

// AddObserver registers observers. Observers are called one update at a
// time and must not update the registry. Not safe to call concurrently with
// updates.
func (r *Registry) AddObserver(observers ...Observer) *Registry {
	r.observers = append(r.observers, observers...)
	return r
}

// Observe records a discovery reply. created is true for a new device.
func (r *Registry) Observe(id ident.ID, now time.Time) (entry Entry, created bool) {
	r.notifyLock.Lock()
	defer r.notifyLock.Unlock()
	r.lock.Lock()
	e := r.entries[id]
	if created = e == nil; created {
		e = &Entry{UUID: id, FirstSeen: now}
		r.entries[id] = e
	}
	e.LastSeen = now
	entry = *e
	r.lock.Unlock()
	r.notifyChanged(entry)
	return
}

// SetDescriptor stores the descriptor of a discovered device.
func (r *Registry) SetDescriptor(id ident.ID, desc *caps.Descriptor, now time.Time) (Entry, error) {
	if desc.UUID != id {
		return Entry{}, fmt.Errorf("descriptor of %s stored for %s", desc.UUID, id)
	}
	r.notifyLock.Lock()
	defer r.notifyLock.Unlock()
	r.lock.Lock()
	e := r.entries[id]
	if e == nil {
		r.lock.Unlock()
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	e.Descriptor, e.LastSeen = desc, now
	entry := *e
	r.lock.Unlock()
	r.notifyChanged(entry)
	return entry, nil
}

// Get looks up an entry.
func (r *Registry) Get(id ident.ID) (Entry, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if e := r.entries[id]; e != nil {
		return *e, true
	}
	return Entry{}, false
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.entries)
}

// List returns all entries ordered by discovery time, then identifier.
func (r *Registry) List() []Entry {
	r.lock.RLock()
	list := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		list = append(list, *e)
	}
	r.lock.RUnlock()
	sort.Slice(list, func(i, j int) bool {
		if !list[i].FirstSeen.Equal(list[j].FirstSeen) {
			return list[i].FirstSeen.Before(list[j].FirstSeen)
		}
		return list[i].UUID < list[j].UUID
	})
	return list
}

// Prune removes entries not seen since before and returns their ids.
// Entries never expire unless Prune is called.
func (r *Registry) Prune(before time.Time) []ident.ID {
	var removed []ident.ID
	r.notifyLock.Lock()
	defer r.notifyLock.Unlock()
	r.lock.Lock()
	for id, e := range r.entries {
		if e.LastSeen.Before(before) {
			delete(r.entries, id)
			removed = append(removed, id)
		}
	}
	r.lock.Unlock()
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	for _, id := range removed {
		for _, o := range r.observers {
			o.EntryRemoved(id)
		}
	}
	return removed
}

func (r *Registry) notifyChanged(entry Entry) {
	for _, o := range r.observers {
		o.EntryChanged(entry)
	}
}
