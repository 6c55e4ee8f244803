package repository

import (
	"context"
	"database/sql"
	"sync"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"tuition-pricing-service/internal/apperror"
	"tuition-pricing-service/internal/entity"
	"tuition-pricing-service/internal/sharding"
)

// ErrSnapshotExists is returned when a snapshot id is written twice.
var ErrSnapshotExists = errors.New("snapshot already exists")

const mysqlDuplicateEntry = 1062

// SnapshotRepository stores snapshots across shard databases. Rows are only ever inserted.
type SnapshotRepository struct {
	dbShards []*sql.DB
	router   *sharding.ShardRouter
}

func NewSnapshotRepository(dbShards []*sql.DB, router *sharding.ShardRouter) *SnapshotRepository {
	return &SnapshotRepository{dbShards, router}
}

func (r *SnapshotRepository) shard(id string) *sql.DB {
	return r.dbShards[r.router.GetShard(id)%len(r.dbShards)]
}

func (r *SnapshotRepository) Insert(ctx context.Context, snap *entity.PricingSnapshot) error {
	query := `INSERT INTO pricing_snapshots (snapshot_id, student_id, class_id, calculated_at, payload) VALUES (?, ?, ?, ?, ?)`
	_, err := r.shard(snap.SnapshotID).ExecContext(ctx, query,
		snap.SnapshotID, snap.StudentID, snap.ClassID, snap.CalculatedAt.UTC(), string(snap.Payload))
	if isDuplicate(err) {
		return errors.Wrap(ErrSnapshotExists, snap.SnapshotID)
	}
	if err != nil {
		return errors.Wrapf(err, "inserting snapshot %s", snap.SnapshotID)
	}
	return nil
}

func (r *SnapshotRepository) Get(ctx context.Context, id string) (*entity.PricingSnapshot, error) {
	query := `SELECT snapshot_id, student_id, class_id, payload FROM pricing_snapshots WHERE snapshot_id = ?`

	snap := &entity.PricingSnapshot{}
	var payload string
	err := r.shard(id).QueryRowContext(ctx, query, id).Scan(&snap.SnapshotID, &snap.StudentID, &snap.ClassID, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFoundError("snapshot %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "selecting snapshot %s", id)
	}
	snap.Payload = []byte(payload)
	return snap, nil
}

// duplicateCheckers recognise a primary key violation in a driver error.
var duplicateCheckers = []func(error) bool{isMySQLDuplicate}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	for _, check := range duplicateCheckers {
		if check(err) {
			return true
		}
	}
	return false
}

func isMySQLDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

// MemorySnapshotRepository keeps snapshots in process memory.
type MemorySnapshotRepository struct {
	mu        sync.RWMutex
	snapshots map[string]entity.PricingSnapshot
}

func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{snapshots: make(map[string]entity.PricingSnapshot)}
}

func (r *MemorySnapshotRepository) Insert(ctx context.Context, snap *entity.PricingSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.snapshots[snap.SnapshotID]; ok {
		return errors.Wrap(ErrSnapshotExists, snap.SnapshotID)
	}
	stored := *snap
	stored.Payload = append([]byte(nil), snap.Payload...)
	r.snapshots[snap.SnapshotID] = stored
	return nil
}

func (r *MemorySnapshotRepository) Get(ctx context.Context, id string) (*entity.PricingSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.snapshots[id]
	if !ok {
		return nil, apperror.NewNotFoundError("snapshot %s not found", id)
	}
	snap := stored
	snap.Payload = append([]byte(nil), stored.Payload...)
	return &snap, nil
}

func (r *MemorySnapshotRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.snapshots)
}
