package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jollyunion/unionkeeper/internal/domain"
)

// GroupRepository handles group data operations
type GroupRepository struct {
	queue *DBQueue
}

// NewGroupRepository creates a new GroupRepository
func NewGroupRepository(queue *DBQueue) *GroupRepository {
	return &GroupRepository{queue: queue}
}

const groupColumns = `id, template, status, clean, invite_link`

func scanGroup(row rowScanner) (*domain.Group, error) {
	var g domain.Group
	var status string
	if err := row.Scan(&g.ID, &g.Template, &status, &g.Clean, &g.InviteLink); err != nil {
		return nil, err
	}
	g.Status = domain.GroupStatus(status)
	return &g, nil
}

func (r *GroupRepository) queryOne(ctx context.Context, query string, args ...any) (*domain.Group, error) {
	var group *domain.Group

	err := r.queue.Execute(func(db *sql.DB) error {
		var err error
		group, err = scanGroup(db.QueryRowContext(ctx, query, args...))
		return err
	})

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return group, nil
}

// GetGroup retrieves a group by its channel ID. It returns nil if there is none.
func (r *GroupRepository) GetGroup(ctx context.Context, groupID int64) (*domain.Group, error) {
	return r.queryOne(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = ?`, groupID)
}

// FindReadyCleanGroup returns the first group, in insertion order, that is
// ready, clean and belongs to templateCode. It returns nil if there is none.
func (r *GroupRepository) FindReadyCleanGroup(ctx context.Context, templateCode string) (*domain.Group, error) {
	return r.queryOne(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE template = ? AND status = ? AND clean = 1 ORDER BY seq LIMIT 1`,
		templateCode, string(domain.GroupStatusReady),
	)
}

// GetAllGroups retrieves all groups in insertion order
func (r *GroupRepository) GetAllGroups(ctx context.Context) ([]*domain.Group, error) {
	var groups []*domain.Group

	err := r.queue.Execute(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `SELECT `+groupColumns+` FROM groups ORDER BY seq`)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			g, err := scanGroup(rows)
			if err != nil {
				return err
			}
			groups = append(groups, g)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return groups, nil
}

// SetGroupClean updates the clean flag of a group. Unknown IDs are ignored.
func (r *GroupRepository) SetGroupClean(ctx context.Context, groupID int64, clean bool) error {
	return r.queue.Execute(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `UPDATE groups SET clean = ? WHERE id = ?`, clean, groupID)
		return err
	})
}

// UpsertGroup inserts a group or updates the one with the same ID.
// An updated group keeps its position in the listing order.
func (r *GroupRepository) UpsertGroup(ctx context.Context, g *domain.Group) error {
	return r.queue.Execute(func(db *sql.DB) error {
		return upsertGroup(ctx, db, g)
	})
}

func upsertGroup(ctx context.Context, db execer, g *domain.Group) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO groups (id, template, status, clean, invite_link)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    template = excluded.template,
    status = excluded.status,
    clean = excluded.clean,
    invite_link = excluded.invite_link`,
		g.ID, g.Template, string(g.Status), g.Clean, g.InviteLink,
	)
	return err
}
