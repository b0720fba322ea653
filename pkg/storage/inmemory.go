package storage

import (
	"sync"

	"github.com/wafwatch/wafwatch/pkg/alarm"
	"github.com/wafwatch/wafwatch/pkg/alert"
)

// InMemoryAlertStorage stores alerts in memory and is
// goroutine-safe. Used in tests and local runs.
type InMemoryAlertStorage struct {
	mu     sync.Mutex
	alerts []alert.Alert
}

func NewInMemoryAlertStorage() *InMemoryAlertStorage {
	return &InMemoryAlertStorage{}
}

func (s *InMemoryAlertStorage) Add(a alert.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
	return nil
}

func (s *InMemoryAlertStorage) Get(id string) (*alert.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.alerts {
		if a.ID == id {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (s *InMemoryAlertStorage) List() ([]alert.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]alert.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out, nil
}

// InMemoryTransitionStorage stores alarm transitions in memory and
// is goroutine-safe.
type InMemoryTransitionStorage struct {
	mu          sync.Mutex
	transitions []alarm.Transition
}

func NewInMemoryTransitionStorage() *InMemoryTransitionStorage {
	return &InMemoryTransitionStorage{}
}

func (s *InMemoryTransitionStorage) Add(t alarm.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions = append(s.transitions, t)
	return nil
}

func (s *InMemoryTransitionStorage) List() ([]alarm.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]alarm.Transition, len(s.transitions))
	copy(out, s.transitions)
	return out, nil
}
