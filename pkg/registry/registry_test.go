package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rs4b/pkg/caps"
	"github.com/robotalks/rs4b/pkg/ident"
)

type recordObserver struct {
	changed []Entry
	removed []ident.ID
}

func (o *recordObserver) EntryChanged(e Entry)     { o.changed = append(o.changed, e) }
func (o *recordObserver) EntryRemoved(id ident.ID) { o.removed = append(o.removed, id) }

func TestObserve(t *testing.T) {
	obs := &recordObserver{}
	r := New().AddObserver(obs)
	t0 := time.Unix(1000, 0)

	e, created := r.Observe("rs4b-000001", t0)
	require.True(t, created)
	require.Equal(t, t0, e.FirstSeen)
	require.Equal(t, t0, e.LastSeen)
	require.False(t, e.Identified())

	_, created = r.Observe("rs4b-000002", t0.Add(time.Millisecond))
	require.True(t, created)
	require.Equal(t, 2, r.Len())

	e, created = r.Observe("rs4b-000001", t0.Add(time.Second))
	require.False(t, created)
	require.Equal(t, t0, e.FirstSeen)
	require.Equal(t, t0.Add(time.Second), e.LastSeen)
	require.Equal(t, 2, r.Len())

	list := r.List()
	require.Len(t, list, 2)
	require.Equal(t, ident.ID("rs4b-000001"), list[0].UUID)
	require.Equal(t, ident.ID("rs4b-000002"), list[1].UUID)
	require.Len(t, obs.changed, 3)
}

func TestSetDescriptor(t *testing.T) {
	r := New()
	now := time.Unix(1000, 0)
	desc, err := caps.Default("rs4b-000001")
	require.NoError(t, err)

	_, err = r.SetDescriptor("rs4b-000001", desc, now)
	require.ErrorIs(t, err, ErrUnknownDevice)

	r.Observe("rs4b-000001", now)
	_, err = r.SetDescriptor("rs4b-000002", desc, now)
	require.Error(t, err)

	e, err := r.SetDescriptor("rs4b-000001", desc, now.Add(time.Second))
	require.NoError(t, err)
	require.True(t, e.Identified())
	require.Equal(t, now.Add(time.Second), e.LastSeen)

	got, ok := r.Get("rs4b-000001")
	require.True(t, ok)
	require.Same(t, desc, got.Descriptor)
	_, ok = r.Get("rs4b-000009")
	require.False(t, ok)
}

func TestPrune(t *testing.T) {
	obs := &recordObserver{}
	r := New().AddObserver(obs)
	t0 := time.Unix(1000, 0)
	r.Observe("rs4b-000002", t0)
	r.Observe("rs4b-000001", t0)
	r.Observe("rs4b-000003", t0.Add(time.Minute))

	require.Equal(t, []ident.ID{"rs4b-000001", "rs4b-000002"}, r.Prune(t0.Add(time.Second)))
	require.Equal(t, []ident.ID{"rs4b-000001", "rs4b-000002"}, obs.removed)
	require.Equal(t, 1, r.Len())
	require.Empty(t, r.Prune(t0))
}

// presenceObserver tracks what a mirror of the registry would hold.
type presenceObserver struct {
	present map[ident.ID]bool
	lock    sync.Mutex
}

func (o *presenceObserver) EntryChanged(e Entry) {
	o.lock.Lock()
	o.present[e.UUID] = true
	o.lock.Unlock()
}

func (o *presenceObserver) EntryRemoved(id ident.ID) {
	o.lock.Lock()
	delete(o.present, id)
	o.lock.Unlock()
}

func TestNotificationsFollowUpdateOrder(t *testing.T) {
	obs := &presenceObserver{present: make(map[ident.ID]bool)}
	r := New().AddObserver(obs)
	id := ident.ID("rs4b-000001")
	t0 := time.Unix(1000, 0)
	for i := 0; i < 500; i++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Observe(id, t0)
		}()
		go func() {
			defer wg.Done()
			r.Prune(t0.Add(time.Second))
		}()
		wg.Wait()
		_, inRegistry := r.Get(id)
		require.Equal(t, inRegistry, obs.present[id], "iteration %d", i)
	}
}
