// Package memory provides an in-process repository.Store used in development
// mode and by tests. Transactions run against a snapshot of the data that is
// swapped in only when the callback succeeds.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/equiply/workflow-service/internal/domain"
	"github.com/equiply/workflow-service/internal/repository"
)

type state struct {
	requests    map[string]domain.ServiceRequest
	history     []domain.StatusHistoryEntry
	assignments map[string]domain.Assignment
	users       map[string]domain.User
}

func newState() *state {
	return &state{
		requests:    map[string]domain.ServiceRequest{},
		assignments: map[string]domain.Assignment{},
		users:       map[string]domain.User{},
	}
}

func (s *state) clone() *state {
	out := &state{
		requests:    make(map[string]domain.ServiceRequest, len(s.requests)),
		history:     append([]domain.StatusHistoryEntry(nil), s.history...),
		assignments: make(map[string]domain.Assignment, len(s.assignments)),
		users:       make(map[string]domain.User, len(s.users)),
	}
	for k, v := range s.requests {
		out.requests[k] = v
	}
	for k, v := range s.assignments {
		out.assignments[k] = v
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	return out
}

// Store is a mutex-guarded repository.Store. Callbacks passed to WithinTx
// must only use the Repositories they are handed.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{state: newState(), now: time.Now}
}

// Repositories returns auto-committing repositories.
func (s *Store) Repositories() repository.Repositories {
	return s.view(nil)
}

// WithinTx runs fn against a snapshot and commits it when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.state.clone()
	if err := fn(ctx, s.view(snapshot)); err != nil {
		return err
	}
	s.state = snapshot
	return nil
}

func (s *Store) view(st *state) repository.Repositories {
	v := &view{store: s, tx: st}
	return repository.Repositories{
		ServiceRequests: &serviceRequests{v},
		History:         &history{v},
		Assignments:     &assignments{v},
		Users:           &users{v},
	}
}

// view routes an operation either to a transaction snapshot or, when tx is
// nil, to the committed state under the store lock.
type view struct {
	store *Store
	tx    *state
}

func (v *view) do(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.state)
}

type serviceRequests struct{ v *view }

func (r *serviceRequests) Create(_ context.Context, request *domain.ServiceRequest) error {
	return r.v.do(func(st *state) error {
		now := r.v.store.now()
		request.ID = uuid.NewString()
		request.CreatedAt = now
		request.UpdatedAt = now
		st.requests[request.ID] = *request
		return nil
	})
}

func (r *serviceRequests) GetByID(_ context.Context, id string) (*domain.ServiceRequest, error) {
	var out domain.ServiceRequest
	err := r.v.do(func(st *state) error {
		request, ok := st.requests[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *serviceRequests) UpdateStatus(_ context.Context, id string, expected, next domain.ServiceRequestStatus) (time.Time, error) {
	var updatedAt time.Time
	err := r.v.do(func(st *state) error {
		request, ok := st.requests[id]
		if !ok || request.Status != expected {
			return repository.ErrStatusConflict
		}
		request.Status = next
		request.UpdatedAt = r.v.store.now()
		st.requests[id] = request
		updatedAt = request.UpdatedAt
		return nil
	})
	return updatedAt, err
}

func (r *serviceRequests) SetAssignedManager(_ context.Context, id, managerID string) error {
	return r.v.do(func(st *state) error {
		request, ok := st.requests[id]
		if !ok {
			return pgx.ErrNoRows
		}
		request.AssignedManagerID = &managerID
		request.UpdatedAt = r.v.store.now()
		st.requests[id] = request
		return nil
	})
}

type history struct{ v *view }

func (r *history) Create(_ context.Context, entry *domain.StatusHistoryEntry) error {
	return r.v.do(func(st *state) error {
		entry.ID = uuid.NewString()
		entry.CreatedAt = r.v.store.now()
		st.history = append(st.history, *entry)
		return nil
	})
}

func (r *history) ListByRequest(_ context.Context, requestID string) ([]domain.StatusHistoryEntry, error) {
	result := []domain.StatusHistoryEntry{}
	err := r.v.do(func(st *state) error {
		for _, entry := range st.history {
			if entry.ServiceRequestID == requestID {
				result = append(result, entry)
			}
		}
		return nil
	})
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, err
}

type assignments struct{ v *view }

func (r *assignments) Create(_ context.Context, assignment *domain.Assignment) error {
	return r.v.do(func(st *state) error {
		if assignment.IsCurrent() {
			for _, existing := range st.assignments {
				if existing.ServiceRequestID == assignment.ServiceRequestID && existing.IsCurrent() {
					return repository.ErrDuplicate
				}
			}
		}
		assignment.ID = uuid.NewString()
		assignment.AssignedAt = r.v.store.now()
		st.assignments[assignment.ID] = *assignment
		return nil
	})
}

func (r *assignments) GetByID(_ context.Context, id string) (*domain.Assignment, error) {
	var out domain.Assignment
	err := r.v.do(func(st *state) error {
		assignment, ok := st.assignments[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *assignments) GetCurrentByRequest(_ context.Context, requestID string) (*domain.Assignment, error) {
	var current *domain.Assignment
	err := r.v.do(func(st *state) error {
		for _, assignment := range st.assignments {
			if assignment.ServiceRequestID != requestID || !assignment.IsCurrent() {
				continue
			}
			if current == nil || assignment.AssignedAt.After(current.AssignedAt) {
				found := assignment
				current = &found
			}
		}
		if current == nil {
			return pgx.ErrNoRows
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return current, nil
}

func (r *assignments) Update(_ context.Context, assignment *domain.Assignment) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.assignments[assignment.ID]; !ok {
			return pgx.ErrNoRows
		}
		st.assignments[assignment.ID] = *assignment
		return nil
	})
}

type users struct{ v *view }

func (r *users) Create(_ context.Context, user *domain.User) error {
	return r.v.do(func(st *state) error {
		for _, existing := range st.users {
			if existing.Email == user.Email {
				return repository.ErrDuplicate
			}
		}
		now := r.v.store.now()
		if user.ID == "" {
			user.ID = uuid.NewString()
		}
		user.CreatedAt = now
		user.UpdatedAt = now
		st.users[user.ID] = *user
		return nil
	})
}

func (r *users) GetByID(_ context.Context, id string) (*domain.User, error) {
	var out domain.User
	err := r.v.do(func(st *state) error {
		user, ok := st.users[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *users) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.v.do(func(st *state) error {
		for _, user := range st.users {
			if user.Email == email {
				found := user
				out = &found
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return out, err
}
