// Package snapshots archives the PDF rendered for each form submission.
// Exactly one snapshot exists per submission; the submission id is the key.
package snapshots

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("snapshot not found")

// Store is the archival contract for submission PDFs.
type Store interface {
	Put(ctx context.Context, submissionID uuid.UUID, pdf []byte) error
	Get(ctx context.Context, submissionID uuid.UUID) ([]byte, error)
}

// ---------------------------------------------------------------------------
// In-memory implementation (tests, development)
// ---------------------------------------------------------------------------

type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[uuid.UUID][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[uuid.UUID][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, submissionID uuid.UUID, pdf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(pdf))
	copy(buf, pdf)
	s.blobs[submissionID] = buf
	return nil
}

func (s *MemoryStore) Get(_ context.Context, submissionID uuid.UUID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pdf, ok := s.blobs[submissionID]
	if !ok {
		return nil, ErrNotFound
	}
	return pdf, nil
}

// ---------------------------------------------------------------------------
// Postgres implementation
// ---------------------------------------------------------------------------

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Put(ctx context.Context, submissionID uuid.UUID, pdf []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO form_submission_pdfs (submission_id, content, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (submission_id) DO UPDATE SET content = EXCLUDED.content`,
		submissionID, pdf, time.Now().UTC())
	return err
}

func (s *PGStore) Get(ctx context.Context, submissionID uuid.UUID) ([]byte, error) {
	var pdf []byte
	err := s.pool.QueryRow(ctx,
		`SELECT content FROM form_submission_pdfs WHERE submission_id = $1`,
		submissionID).Scan(&pdf)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return pdf, err
}
