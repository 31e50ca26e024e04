package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/jollyunion/unionkeeper/internal/domain"

	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML document accepted by Seed
type SeedFile struct {
	Templates []SeedTemplate `yaml:"templates"`
	Groups    []SeedGroup    `yaml:"groups"`
}

// SeedTemplate is a template entry of a seed file
type SeedTemplate struct {
	Code  string `yaml:"code"`
	Title string `yaml:"title"`
	Index struct {
		ChatID    int64 `yaml:"chat_id"`
		MessageID int   `yaml:"message_id"`
	} `yaml:"index"`
	Message struct {
		ResourceURL  string      `yaml:"resource_url"`
		Overview     string      `yaml:"overview"`
		CallToAction string      `yaml:"call_to_action"`
		Author       *SeedAuthor `yaml:"author"`
	} `yaml:"index_message"`
}

// SeedAuthor is the optional author credit of a template
type SeedAuthor struct {
	Name               string `yaml:"name"`
	URL                string `yaml:"url"`
	SupportPlatform    string `yaml:"support_platform"`
	SupportPlatformURL string `yaml:"support_platform_url"`
}

// SeedGroup is a group entry of a seed file. Clean defaults to true.
type SeedGroup struct {
	ID         int64  `yaml:"id"`
	Template   string `yaml:"template"`
	Status     string `yaml:"status"`
	Clean      *bool  `yaml:"clean"`
	InviteLink string `yaml:"invite_link"`
}

// SeedResult counts imported records
type SeedResult struct {
	Templates int
	Groups    int
}

func (t SeedTemplate) toDomain() *domain.Template {
	template := &domain.Template{
		Code:  t.Code,
		Title: t.Title,
		IndexMessage: domain.IndexMessage{
			ResourceURL:  t.Message.ResourceURL,
			Overview:     t.Message.Overview,
			CallToAction: t.Message.CallToAction,
		},
		IndexRef: domain.IndexRef{
			ChatID:    t.Index.ChatID,
			MessageID: t.Index.MessageID,
		},
	}
	if a := t.Message.Author; a != nil {
		template.IndexMessage.Author = &domain.Author{
			Name:               a.Name,
			URL:                a.URL,
			SupportPlatform:    a.SupportPlatform,
			SupportPlatformURL: a.SupportPlatformURL,
		}
	}
	return template
}

func (g SeedGroup) toDomain() *domain.Group {
	clean := true
	if g.Clean != nil {
		clean = *g.Clean
	}
	status := domain.GroupStatus(g.Status)
	if status == "" {
		status = domain.GroupStatusReady
	}
	return &domain.Group{
		ID:         g.ID,
		Template:   g.Template,
		Status:     status,
		Clean:      clean,
		InviteLink: g.InviteLink,
	}
}

// ErrUnknownTemplate is returned when a seeded group references a template
// that is neither in the seed file nor stored
var ErrUnknownTemplate = errors.New("group references unknown template")

// ParseSeed decodes and validates a seed document
func ParseSeed(r io.Reader) ([]*domain.Template, []*domain.Group, error) {
	var file SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("failed to decode seed file: %w", err)
	}

	templates := make([]*domain.Template, 0, len(file.Templates))
	for i, st := range file.Templates {
		t := st.toDomain()
		if err := t.Validate(); err != nil {
			return nil, nil, fmt.Errorf("template #%d (%s): %w", i+1, st.Code, err)
		}
		templates = append(templates, t)
	}

	groups := make([]*domain.Group, 0, len(file.Groups))
	for i, sg := range file.Groups {
		g := sg.toDomain()
		if err := g.Validate(); err != nil {
			return nil, nil, fmt.Errorf("group #%d (%d): %w", i+1, sg.ID, err)
		}
		groups = append(groups, g)
	}

	return templates, groups, nil
}

// Seed imports a seed document in one transaction. Templates are written
// before groups; existing records with the same key are updated.
func Seed(ctx context.Context, queue *DBQueue, r io.Reader) (SeedResult, error) {
	templates, groups, err := ParseSeed(r)
	if err != nil {
		return SeedResult{}, err
	}

	err = queue.ExecuteTx(func(tx *sql.Tx) error {
		seeded := make(map[string]bool, len(templates))
		for _, t := range templates {
			seeded[t.Code] = true
			if err := upsertTemplate(ctx, tx, t); err != nil {
				return fmt.Errorf("failed to store template %s: %w", t.Code, err)
			}
		}
		for _, g := range groups {
			if !seeded[g.Template] {
				var n int
				err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates WHERE code = ?`, g.Template).Scan(&n)
				if err != nil {
					return err
				}
				if n == 0 {
					return fmt.Errorf("group %d: %w %q", g.ID, ErrUnknownTemplate, g.Template)
				}
			}
			if err := upsertGroup(ctx, tx, g); err != nil {
				return fmt.Errorf("failed to store group %d: %w", g.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}

	return SeedResult{Templates: len(templates), Groups: len(groups)}, nil
}
