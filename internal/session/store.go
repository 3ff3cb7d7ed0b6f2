package session

import (
	"container/list"
	"sync"
	"time"
)

// Store keeps one State per user with TTL and size-based eviction. An evicted
// or expired user reads as Idle.
type Store struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[int64]*list.Element
	lru     *list.List
	locks   map[int64]*userLock
	now     func() time.Time

	stopCleanup chan struct{}
	cleanupDone chan struct{}
	stopOnce    sync.Once
}

type entry struct {
	userID    int64
	state     State
	expiresAt time.Time
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewStore creates a store holding at most maxSize users, each for ttl after
// its last write.
func NewStore(maxSize int, ttl time.Duration) *Store {
	return &Store{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[int64]*list.Element),
		lru:     list.New(),
		locks:   make(map[int64]*userLock),
		now:     time.Now,
	}
}

// Get returns the user's state without consuming it.
func (s *Store) Get(userID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[userID]
	if !ok {
		return Idle()
	}
	e := elem.Value.(*entry)
	if s.now().After(e.expiresAt) {
		s.removeElement(elem)
		return Idle()
	}
	s.lru.MoveToFront(elem)
	return e.state
}

// Set replaces the user's state. Setting Idle drops the entry.
func (s *Store) Set(userID int64, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.items[userID]; ok {
		if state.IsIdle() {
			s.removeElement(elem)
			return
		}
		e := elem.Value.(*entry)
		e.state = state
		e.expiresAt = s.now().Add(s.ttl)
		s.lru.MoveToFront(elem)
		return
	}
	if state.IsIdle() {
		return
	}

	elem := s.lru.PushFront(&entry{userID: userID, state: state, expiresAt: s.now().Add(s.ttl)})
	s.items[userID] = elem

	if s.lru.Len() > s.maxSize {
		if oldest := s.lru.Back(); oldest != nil {
			s.removeElement(oldest)
		}
	}
}

// Take returns the user's state and resets it to Idle.
func (s *Store) Take(userID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[userID]
	if !ok {
		return Idle()
	}
	e := elem.Value.(*entry)
	s.removeElement(elem)
	if s.now().After(e.expiresAt) {
		return Idle()
	}
	return e.state
}

// Lock enters the user's exclusive region and returns the function leaving it.
// Events of different users never contend.
func (s *Store) Lock(userID int64) (unlock func()) {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}

func (s *Store) removeElement(elem *list.Element) {
	e := elem.Value.(*entry)
	delete(s.items, e.userID)
	s.lru.Remove(elem)
}

// CleanExpired removes all expired entries and returns count of removed items
func (s *Store) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var toRemove []*list.Element
	for elem := s.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*entry).expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		s.removeElement(elem)
	}
	return len(toRemove)
}

// Size returns the number of users with a non-idle state
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// StartCleanup begins periodic removal of expired entries.
func (s *Store) StartCleanup(interval time.Duration, onClean func(removed int)) {
	s.stopCleanup = make(chan struct{})
	s.cleanupDone = make(chan struct{})
	go s.cleanup(interval, onClean)
}

func (s *Store) cleanup(interval time.Duration, onClean func(removed int)) {
	defer close(s.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.CleanExpired(); n > 0 && onClean != nil {
				onClean(n)
			}
		case <-s.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		if s.stopCleanup != nil {
			close(s.stopCleanup)
			<-s.cleanupDone
		}
	})
}
