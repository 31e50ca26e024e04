package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplateValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Template)
		wantErr error
	}{
		{"valid", func(*Template) {}, nil},
		{"empty code", func(t *Template) { t.Code = "" }, ErrEmptyTemplateCode},
		{"empty title", func(t *Template) { t.Title = "" }, ErrEmptyTemplateTitle},
		{"no index message", func(t *Template) { t.IndexRef.MessageID = 0 }, ErrInvalidIndexMessage},
		{"author without platform", func(t *Template) {
			t.IndexMessage.Author = &Author{Name: "Ada"}
		}, ErrIncompleteAuthor},
		{"complete author", func(t *Template) {
			t.IndexMessage.Author = &Author{Name: "Ada", SupportPlatform: "Patreon", SupportPlatformURL: "https://patreon.com/ada"}
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := sampleTemplate()
			tt.mutate(tmpl)
			err := tmpl.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGroupValidate(t *testing.T) {
	valid := Group{ID: 1, Template: "wt", Status: GroupStatusReady, InviteLink: "https://t.me/+x"}
	assert.NoError(t, valid.Validate())

	g := valid
	g.ID = 0
	assert.ErrorIs(t, g.Validate(), ErrInvalidGroupID)

	g = valid
	g.Template = ""
	assert.ErrorIs(t, g.Validate(), ErrEmptyTemplateCode)

	g = valid
	g.InviteLink = ""
	assert.ErrorIs(t, g.Validate(), ErrEmptyInviteLink)

	g = valid
	g.Status = "archived"
	assert.ErrorIs(t, g.Validate(), ErrInvalidGroupStatus)
}

func TestGroupEligible(t *testing.T) {
	g := Group{ID: 1, Template: "wt", Status: GroupStatusReady, Clean: true}
	assert.True(t, g.Eligible("wt"))
	assert.False(t, g.Eligible("other"))

	g.Clean = false
	assert.False(t, g.Eligible("wt"))

	g.Clean = true
	g.Status = GroupStatusPending
	assert.False(t, g.Eligible("wt"))
}
