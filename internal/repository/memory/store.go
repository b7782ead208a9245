// Package memory provides in-process implementations of the repository
// interfaces. It backs tests and the single-node "memory" storage driver.
package memory

import (
	"context"
	"sync"

	"coupon-scheduler/internal/model"
	"coupon-scheduler/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store holds every collection behind one mutex. The per-entity views
// returned by its accessors share that state.
type Store struct {
	mu sync.RWMutex

	coupons       map[primitive.ObjectID]model.Coupon
	schedules     map[primitive.ObjectID]model.Schedule
	issues        map[primitive.ObjectID]model.Issue
	acquisitions  map[primitive.ObjectID]model.Acquisition
	notifications map[primitive.ObjectID]model.Notification
	operators     map[primitive.ObjectID]model.Operator
	shops         map[primitive.ObjectID]model.Shop

	locks keyedMutex
}

func NewStore() *Store {
	return &Store{
		coupons:       map[primitive.ObjectID]model.Coupon{},
		schedules:     map[primitive.ObjectID]model.Schedule{},
		issues:        map[primitive.ObjectID]model.Issue{},
		acquisitions:  map[primitive.ObjectID]model.Acquisition{},
		notifications: map[primitive.ObjectID]model.Notification{},
		operators:     map[primitive.ObjectID]model.Operator{},
		shops:         map[primitive.ObjectID]model.Shop{},
	}
}

func (s *Store) Coupons() repository.CouponRepository             { return &couponRepo{s} }
func (s *Store) Schedules() repository.ScheduleRepository         { return &scheduleRepo{s} }
func (s *Store) Issues() repository.IssueRepository               { return &issueRepo{s} }
func (s *Store) Acquisitions() repository.AcquisitionRepository   { return &acquisitionRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository { return &notificationRepo{s} }
func (s *Store) Operators() repository.OperatorRepository         { return &operatorRepo{s} }

// WithTransaction serializes every unit that names the same key. Writes
// made before fn fails are not rolled back.
func (s *Store) WithTransaction(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	unlock, err := s.locks.lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()
	return fn(ctx)
}

// keyedMutex hands out one lock per key. A lock is a buffered channel so
// that waiting can be abandoned when ctx is done.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func (k *keyedMutex) lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[string]chan struct{}{}
	}
	ch, ok := k.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		k.locks[key] = ch
	}
	k.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
