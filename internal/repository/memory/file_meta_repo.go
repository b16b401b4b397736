package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"invox/internal/domain"
	"invox/internal/port"
)

type fileMetaRepo struct {
	mu    sync.RWMutex
	metas map[uuid.UUID]*domain.FileMeta
}

// NewFileMetaRepo creates an empty in-memory FileMetaRepository.
func NewFileMetaRepo() port.FileMetaRepository {
	return &fileMetaRepo{metas: make(map[uuid.UUID]*domain.FileMeta)}
}

func (r *fileMetaRepo) Create(ctx context.Context, meta *domain.FileMeta) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	meta.CreatedAt = now
	meta.UpdatedAt = now
	stored := *meta
	r.metas[meta.ID] = &stored
	return nil
}

func (r *fileMetaRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.FileMeta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.metas[id]
	if !ok {
		return nil, domain.ErrFileNotFound
	}
	out := *meta
	return &out, nil
}

func (r *fileMetaRepo) List(ctx context.Context, offset, limit int) ([]domain.FileMeta, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.FileMeta, 0, len(r.metas))
	for _, meta := range r.metas {
		all = append(all, *meta)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})

	total := len(all)
	if offset >= total {
		return []domain.FileMeta{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *fileMetaRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.FileStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta, ok := r.metas[id]
	if !ok {
		return domain.ErrFileNotFound
	}
	meta.Status = status
	meta.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fileMetaRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.metas[id]; !ok {
		return domain.ErrFileNotFound
	}
	delete(r.metas, id)
	return nil
}
