package querycache

import "sync/atomic"

// subscription is one observer of a key. Once deactivated it is a no-op
// sink: late results of fetches it triggered are dropped silently.
type subscription struct {
	id     uint64
	fn     func(Snapshot)
	active atomic.Bool
	last   atomic.Uint64
}

func newSubscription(id uint64, fn func(Snapshot)) *subscription {
	sub := &subscription{id: id, fn: fn}
	sub.active.Store(true)
	return sub
}

// deliver hands snap to the observer unless a newer version was
// already delivered or the subscription is gone.
func (s *subscription) deliver(snap Snapshot) {
	for {
		if !s.active.Load() {
			return
		}
		last := s.last.Load()
		if snap.Version <= last {
			return
		}
		if s.last.CompareAndSwap(last, snap.Version) {
			break
		}
	}
	s.fn(snap)
}

type delivery struct {
	sub  *subscription
	snap Snapshot
}

func notify(ds []delivery) {
	for _, d := range ds {
		d.sub.deliver(d.snap)
	}
}
