package mqtt

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/golang/glog"

	fx "github.com/robotalks/rs4b/pkg/framework"
	"github.com/robotalks/rs4b/pkg/ident"
	"github.com/robotalks/rs4b/pkg/registry"
)

// MetaFilter matches the meta topic of every device.
const MetaFilter = "+/meta"

// DefaultQoS is the QoS of mirrored entries.
const DefaultQoS byte = 1

// Topic returns the topic of a device, relative to the prefix.
func Topic(id ident.ID) string {
	return string(id) + "/meta"
}

// Payload encodes an entry as published.
func Payload(e registry.Entry) ([]byte, error) {
	e.FirstSeen, e.LastSeen = e.FirstSeen.UTC(), e.LastSeen.UTC()
	return json.Marshal(&e)
}

// ParsePayload decodes a published entry.
func ParsePayload(data []byte) (registry.Entry, error) {
	var e registry.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return registry.Entry{}, err
	}
	if _, err := ident.Parse(string(e.UUID)); err != nil {
		return registry.Entry{}, err
	}
	return e, nil
}

// Mirror publishes registry entries as retained messages and clears them
// when devices are pruned or the mirror stops.
type Mirror struct {
	Queue    *Queue
	Registry *registry.Registry
	QoS      byte

	// pending maps to nil for a removed entry.
	pending   map[ident.ID]*registry.Entry
	published map[ident.ID]struct{}
	signal    chan struct{}
	lock      sync.Mutex
}

// NewMirror creates a Mirror from a broker URL and attaches it to reg.
func NewMirror(brokerURL string, reg *registry.Registry) (*Mirror, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if opts.ClientID == "" {
		host, _ := os.Hostname()
		opts.SetClientID("rs4b:" + host)
	}
	return newMirror(NewQueue(opts, topicPrefix), reg), nil
}

func newMirror(q *Queue, reg *registry.Registry) *Mirror {
	m := &Mirror{
		Queue:     q,
		Registry:  reg,
		QoS:       DefaultQoS,
		pending:   make(map[ident.ID]*registry.Entry),
		published: make(map[ident.ID]struct{}),
		signal:    make(chan struct{}, 1),
	}
	q.OnConnect = func(*Queue) { m.republish() }
	reg.AddObserver(m)
	return m
}

// EntryChanged implements registry.Observer.
func (m *Mirror) EntryChanged(e registry.Entry) {
	m.enqueue(e.UUID, &e)
}

// EntryRemoved implements registry.Observer.
func (m *Mirror) EntryRemoved(id ident.ID) {
	m.enqueue(id, nil)
}

// AddToLoop implements LoopAdder.
func (m *Mirror) AddToLoop(l *fx.Loop) {
	l.AddRunnable(m)
}

// Run implements Runnable. Updates are published from this goroutine so
// registry observers never wait on the broker.
func (m *Mirror) Run(ctx context.Context) error {
	if token := m.Queue.Connect(); token.Wait() && token.Error() != nil {
		glog.Errorf("mqtt connect: %v", token.Error())
	}
	defer m.Queue.Close()
	for {
		select {
		case <-m.signal:
			m.flush()
		case <-ctx.Done():
			m.clear()
			return nil
		}
	}
}

// Browse collects the entries currently retained on the broker, waiting
// up to wait for them to arrive. Run must be active.
func (m *Mirror) Browse(ctx context.Context, wait time.Duration) ([]registry.Entry, error) {
	entries := make(map[ident.ID]registry.Entry)
	var lock sync.Mutex
	sub := m.Queue.Sub(MetaFilter, func(topic string, payload []byte) {
		if len(payload) == 0 {
			return
		}
		e, err := ParsePayload(payload)
		if err != nil {
			glog.Warningf("mqtt %s: %v", topic, err)
			return
		}
		lock.Lock()
		entries[e.UUID] = e
		lock.Unlock()
	})
	defer sub.Close()

	var err error
	select {
	case <-time.After(wait):
	case <-ctx.Done():
		err = ctx.Err()
	}
	lock.Lock()
	defer lock.Unlock()
	list := make([]registry.Entry, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UUID < list[j].UUID })
	return list, err
}

func (m *Mirror) enqueue(id ident.ID, e *registry.Entry) {
	m.lock.Lock()
	m.pending[id] = e
	m.lock.Unlock()
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *Mirror) republish() {
	for _, e := range m.Registry.List() {
		m.enqueue(e.UUID, &e)
	}
}

func (m *Mirror) flush() {
	if !m.Queue.Client.IsConnected() {
		return
	}
	m.lock.Lock()
	pending := m.pending
	m.pending = make(map[ident.ID]*registry.Entry)
	m.lock.Unlock()
	for id, e := range pending {
		if e == nil {
			m.publish(id, nil)
			continue
		}
		payload, err := Payload(*e)
		if err != nil {
			glog.Errorf("mqtt encode %s: %v", id, err)
			continue
		}
		m.publish(id, payload)
	}
}

// clear removes every retained entry published by this mirror.
func (m *Mirror) clear() {
	m.lock.Lock()
	ids := make([]ident.ID, 0, len(m.published))
	for id := range m.published {
		ids = append(ids, id)
	}
	m.lock.Unlock()
	for _, id := range ids {
		m.publish(id, nil)
	}
}

// publish sends a retained payload, an empty one clears the topic.
func (m *Mirror) publish(id ident.ID, payload []byte) {
	token := m.Queue.PubWith(Topic(id), payload, m.QoS, true)
	if token.WaitTimeout(time.Second) && token.Error() != nil {
		glog.Warningf("mqtt publish %s: %v", id, token.Error())
		return
	}
	m.lock.Lock()
	if payload == nil {
		delete(m.published, id)
	} else {
		m.published[id] = struct{}{}
	}
	m.lock.Unlock()
}
