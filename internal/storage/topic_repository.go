package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jollyunion/unionkeeper/internal/domain"
)

// TopicRepository maps relay users to their forum topics
type TopicRepository struct {
	queue *DBQueue
}

// NewTopicRepository creates a new TopicRepository
func NewTopicRepository(queue *DBQueue) *TopicRepository {
	return &TopicRepository{queue: queue}
}

// GetThreadID returns the topic thread of a user
func (r *TopicRepository) GetThreadID(ctx context.Context, userID int64) (int, bool, error) {
	var threadID int

	err := r.queue.Execute(func(db *sql.DB) error {
		return db.QueryRowContext(ctx,
			`SELECT thread_id FROM user_topics WHERE user_id = ?`, userID,
		).Scan(&threadID)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return threadID, true, nil
}

// GetUserID returns the user a topic thread belongs to
func (r *TopicRepository) GetUserID(ctx context.Context, threadID int) (int64, bool, error) {
	var userID int64

	err := r.queue.Execute(func(db *sql.DB) error {
		return db.QueryRowContext(ctx,
			`SELECT user_id FROM user_topics WHERE thread_id = ?`, threadID,
		).Scan(&userID)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return userID, true, nil
}

// SaveTopic stores the mapping, replacing any previous thread of the user
func (r *TopicRepository) SaveTopic(ctx context.Context, topic *domain.UserTopic) error {
	return r.queue.Execute(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
INSERT INTO user_topics (user_id, thread_id) VALUES (?, ?)
ON CONFLICT(user_id) DO UPDATE SET thread_id = excluded.thread_id`,
			topic.UserID, topic.ThreadID,
		)
		return err
	})
}
