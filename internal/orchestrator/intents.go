package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/medcompare/pharmacy-orchestrator/internal/metrics"
	"github.com/medcompare/pharmacy-orchestrator/internal/models"
)

// IntentStore holds approval-pending order intents keyed by opaque id.
// An intent is consumed at most once: Consume removes it under the lock, so
// two concurrent approvals of the same id cannot both place the order.
type IntentStore struct {
	mu      sync.Mutex
	intents map[string]models.OrderIntent
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

// NewIntentStore creates a store whose intents expire after ttl. A janitor
// goroutine sweeps expired entries so the gauge stays honest even when
// nobody calls Consume.
func NewIntentStore(ttl time.Duration) *IntentStore {
	s := &IntentStore{
		intents: make(map[string]models.OrderIntent),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Create stores a new intent and returns it with a freshly generated id.
func (s *IntentStore) Create(orders []models.IntentOrder, userEmail, address string) models.OrderIntent {
	now := time.Now()
	intent := models.OrderIntent{
		ID:        uuid.New().String(),
		Orders:    orders,
		UserEmail: userEmail,
		Address:   address,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.intents[intent.ID] = intent
	metrics.PendingIntents.Set(float64(len(s.intents)))
	s.mu.Unlock()

	return intent
}

// Consume atomically removes and returns the intent, if present and not
// expired. A second Consume with the same id misses.
func (s *IntentStore) Consume(id string) (models.OrderIntent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[id]
	if !ok {
		return models.OrderIntent{}, false
	}
	delete(s.intents, id)
	metrics.PendingIntents.Set(float64(len(s.intents)))

	if time.Now().After(intent.ExpiresAt) {
		return models.OrderIntent{}, false
	}
	return intent, true
}

// Len returns the number of stored intents, expired ones included until the
// next sweep.
func (s *IntentStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.intents)
}

// Close stops the janitor goroutine.
func (s *IntentStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *IntentStore) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *IntentStore) sweep() {
	now := time.Now()

	s.mu.Lock()
	removed := 0
	for id, intent := range s.intents {
		if now.After(intent.ExpiresAt) {
			delete(s.intents, id)
			removed++
		}
	}
	metrics.PendingIntents.Set(float64(len(s.intents)))
	s.mu.Unlock()

	if removed > 0 {
		log.WithField("expired", removed).Info("Swept expired order intents")
	}
}
