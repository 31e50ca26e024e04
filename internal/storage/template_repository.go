package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jollyunion/unionkeeper/internal/domain"
)

// TemplateRepository handles template data operations
type TemplateRepository struct {
	queue *DBQueue
}

// NewTemplateRepository creates a new TemplateRepository
func NewTemplateRepository(queue *DBQueue) *TemplateRepository {
	return &TemplateRepository{queue: queue}
}

const templateColumns = `code, title, resource_url, overview, call_to_action,
    author_name, author_url, author_support_platform, author_support_platform_url,
    index_chat_id, index_message_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*domain.Template, error) {
	var t domain.Template
	var authorName, authorURL, platform, platformURL sql.NullString
	err := row.Scan(
		&t.Code, &t.Title,
		&t.IndexMessage.ResourceURL, &t.IndexMessage.Overview, &t.IndexMessage.CallToAction,
		&authorName, &authorURL, &platform, &platformURL,
		&t.IndexRef.ChatID, &t.IndexRef.MessageID,
	)
	if err != nil {
		return nil, err
	}

	if authorName.Valid && authorName.String != "" {
		t.IndexMessage.Author = &domain.Author{
			Name:               authorName.String,
			URL:                authorURL.String,
			SupportPlatform:    platform.String,
			SupportPlatformURL: platformURL.String,
		}
	}
	return &t, nil
}

// GetTemplate retrieves a template by code. It returns nil if there is none.
func (r *TemplateRepository) GetTemplate(ctx context.Context, code string) (*domain.Template, error) {
	var template *domain.Template

	err := r.queue.Execute(func(db *sql.DB) error {
		var err error
		template, err = scanTemplate(db.QueryRowContext(ctx,
			`SELECT `+templateColumns+` FROM templates WHERE code = ?`, code,
		))
		return err
	})

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return template, nil
}

// GetAllTemplates retrieves every template ordered by code
func (r *TemplateRepository) GetAllTemplates(ctx context.Context) ([]*domain.Template, error) {
	var templates []*domain.Template

	err := r.queue.Execute(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `SELECT `+templateColumns+` FROM templates ORDER BY code`)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			t, err := scanTemplate(rows)
			if err != nil {
				return err
			}
			templates = append(templates, t)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return templates, nil
}

// UpsertTemplate inserts a template or replaces the one with the same code
func (r *TemplateRepository) UpsertTemplate(ctx context.Context, t *domain.Template) error {
	return r.queue.Execute(func(db *sql.DB) error {
		return upsertTemplate(ctx, db, t)
	})
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertTemplate(ctx context.Context, db execer, t *domain.Template) error {
	var authorName, authorURL, platform, platformURL sql.NullString
	if a := t.IndexMessage.Author; a != nil {
		authorName = sql.NullString{String: a.Name, Valid: true}
		authorURL = sql.NullString{String: a.URL, Valid: a.URL != ""}
		platform = sql.NullString{String: a.SupportPlatform, Valid: true}
		platformURL = sql.NullString{String: a.SupportPlatformURL, Valid: true}
	}

	_, err := db.ExecContext(ctx, `
INSERT INTO templates (`+templateColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(code) DO UPDATE SET
    title = excluded.title,
    resource_url = excluded.resource_url,
    overview = excluded.overview,
    call_to_action = excluded.call_to_action,
    author_name = excluded.author_name,
    author_url = excluded.author_url,
    author_support_platform = excluded.author_support_platform,
    author_support_platform_url = excluded.author_support_platform_url,
    index_chat_id = excluded.index_chat_id,
    index_message_id = excluded.index_message_id`,
		t.Code, t.Title,
		t.IndexMessage.ResourceURL, t.IndexMessage.Overview, t.IndexMessage.CallToAction,
		authorName, authorURL, platform, platformURL,
		t.IndexRef.ChatID, t.IndexRef.MessageID,
	)
	return err
}
