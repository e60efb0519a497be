package generations

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu     sync.RWMutex
	byID   map[string]Generation
	byUser map[string][]string // userID -> generation IDs in insertion order
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]Generation),
		byUser: make(map[string][]string),
	}
}

// Create stores a new generation.
func (r *MemoryRepo) Create(ctx context.Context, gen Generation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[gen.ID] = gen
	r.byUser[gen.UserID] = append(r.byUser[gen.UserID], gen.ID)
	return nil
}

// Update replaces a stored generation.
func (r *MemoryRepo) Update(ctx context.Context, gen Generation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[gen.ID]
	if !ok {
		return ErrNotFound
	}
	if existing.UserID != gen.UserID {
		return ErrForbidden
	}
	r.byID[gen.ID] = gen
	return nil
}

// GetByID returns a generation owned by userID.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, generationID string) (Generation, error) {
	if err := ctx.Err(); err != nil {
		return Generation{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	gen, ok := r.byID[generationID]
	if !ok {
		return Generation{}, ErrNotFound
	}
	if gen.UserID != userID {
		return Generation{}, ErrForbidden
	}
	return gen, nil
}

// GetLatestByUser returns the most recently created generation of a user.
func (r *MemoryRepo) GetLatestByUser(ctx context.Context, userID string) (Generation, error) {
	gens, err := r.ListByUser(ctx, userID, 1, 0)
	if err != nil {
		return Generation{}, err
	}
	if len(gens) == 0 {
		return Generation{}, ErrNotFound
	}
	return gens[0], nil
}

// ListByUser returns generations newest first, honoring limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Generation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)

	r.mu.RLock()
	ids := r.byUser[userID]
	gens := make([]Generation, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		gens = append(gens, r.byID[ids[i]])
	}
	r.mu.RUnlock()

	// Newest insertion wins ties on CreatedAt.
	sort.SliceStable(gens, func(i, j int) bool {
		return gens[i].CreatedAt.After(gens[j].CreatedAt)
	})

	if offset >= len(gens) {
		return []Generation{}, nil
	}
	end := offset + limit
	if end > len(gens) {
		end = len(gens)
	}
	return gens[offset:end], nil
}

var _ Repo = (*MemoryRepo)(nil)
