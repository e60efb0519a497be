package generations

import "context"

// Repo defines persistence operations for generation runs.
type Repo interface {
	Create(ctx context.Context, gen Generation) error
	Update(ctx context.Context, gen Generation) error
	GetByID(ctx context.Context, userID, generationID string) (Generation, error)
	GetLatestByUser(ctx context.Context, userID string) (Generation, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Generation, error)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
