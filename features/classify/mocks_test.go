package classify_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"visionbridge/internal/store"
)

var errStoreDown = errors.New("store down")

// fakeStore is an in-memory ObjectStore. It counts Gets and can be primed
// to fail, which unit tests use to exercise the wait loop without timing on
// real backends.
type fakeStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	gets     int
	getTimes []time.Time
	getErrs  int // number of leading Get calls that fail hard
	putErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Put(ctx context.Context, key string, data []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	f.getTimes = append(f.getTimes, time.Now())
	if f.getErrs > 0 {
		f.getErrs--
		return nil, errStoreDown
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return data, nil
}

func (f *fakeStore) GetDelete(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	f.getTimes = append(f.getTimes, time.Now())
	if f.getErrs > 0 {
		f.getErrs--
		return nil, errStoreDown
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(f.objects, key)
	return data, nil
}

func (f *fakeStore) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func (f *fakeStore) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

func (f *fakeStore) pollTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.getTimes...)
}

func (f *fakeStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

// gatedStore holds every consuming read until the expected number of readers
// is in flight, forcing them to race on the same key.
type gatedStore struct {
	*fakeStore
	arrived *sync.WaitGroup
}

func (g *gatedStore) GetDelete(ctx context.Context, key string) ([]byte, error) {
	g.arrived.Done()
	g.arrived.Wait()
	return g.fakeStore.GetDelete(ctx, key)
}

// fakePublisher records published messages.
type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	bodies [][]byte
	err    error
}

func (f *fakePublisher) Publish(topic string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.bodies = append(f.bodies, append([]byte(nil), body...))
	return nil
}

func (f *fakePublisher) published() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.topics)
}

func (f *fakePublisher) topic(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.topics[i]
}

func (f *fakePublisher) body(i int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.bodies[i]...)
}

func (f *fakePublisher) allBodies() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.bodies))
	for i, b := range f.bodies {
		out[i] = append([]byte(nil), b...)
	}
	return out
}
