package domain

import (
	"errors"
	"strings"

	"github.com/gotd/td/tg"
)

// Lookup and workflow errors
var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrGroupNotFound    = errors.New("no ready clean group found")
	ErrEchoNotReceived  = errors.New("failed to receive message")
	ErrNotModified      = errors.New("remote reported no modification")
)

// Validation errors
var (
	ErrEmptyTemplateCode   = errors.New("template code cannot be empty")
	ErrEmptyTemplateTitle  = errors.New("template title cannot be empty")
	ErrInvalidIndexMessage = errors.New("index message ID must be set")
	ErrIncompleteAuthor    = errors.New("author requires a name and a support platform link")
	ErrInvalidGroupID      = errors.New("group ID must be set")
	ErrInvalidGroupStatus  = errors.New("invalid group status")
	ErrEmptyInviteLink     = errors.New("invite link cannot be empty")
)

// Author is the creator credited in an index message
type Author struct {
	Name               string
	URL                string // optional, links the name when set
	SupportPlatform    string
	SupportPlatformURL string
}

// IndexMessage is the public listing copy of a template
type IndexMessage struct {
	ResourceURL  string
	Overview     string
	Author       *Author
	CallToAction string
}

// IndexRef points at the message in the index channel that lists a template.
// A zero ChatID means the configured index channel.
type IndexRef struct {
	ChatID    int64
	MessageID int
}

// Template describes a kind of group and how it is advertised
type Template struct {
	Code         string
	Title        string
	IndexMessage IndexMessage
	IndexRef     IndexRef
}

// GroupStatus represents the lifecycle state of a group
type GroupStatus string

const (
	GroupStatusReady   GroupStatus = "ready"
	GroupStatusPending GroupStatus = "pending"
	GroupStatusBanned  GroupStatus = "banned"
)

// Group is a concrete, joinable channel instance of a template.
// ID is the raw channel ID, without the -100 Bot API prefix.
type Group struct {
	ID         int64
	Template   string
	Status     GroupStatus
	Clean      bool // not yet consumed by a publication
	InviteLink string
}

// Eligible reports whether the group can be selected for publication of code
func (g *Group) Eligible(code string) bool {
	return g.Status == GroupStatusReady && g.Clean && g.Template == code
}

// Message is a message as observed by an MTProto user session.
// ChatID uses the Bot API convention (-100 prefix for channels).
type Message struct {
	ID       int
	ChatID   int64
	Date     int
	Text     string
	Entities []tg.MessageEntityClass
}

// SentMessage is the bot's own copy of a message it just sent
type SentMessage struct {
	ChatID int64
	ID     int
	Date   int
	Text   string
}

// UserTopic maps a private chat user to their thread in the relay forum group
type UserTopic struct {
	UserID   int64
	ThreadID int
}

// FirstLine returns text up to the first line break
func FirstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}

// Validate validates a Template
func (t *Template) Validate() error {
	if t.Code == "" {
		return ErrEmptyTemplateCode
	}
	if t.Title == "" {
		return ErrEmptyTemplateTitle
	}
	if t.IndexRef.MessageID <= 0 {
		return ErrInvalidIndexMessage
	}
	if a := t.IndexMessage.Author; a != nil {
		if a.Name == "" || a.SupportPlatform == "" || a.SupportPlatformURL == "" {
			return ErrIncompleteAuthor
		}
	}
	return nil
}

// Validate validates a Group
func (g *Group) Validate() error {
	if g.ID <= 0 {
		return ErrInvalidGroupID
	}
	if g.Template == "" {
		return ErrEmptyTemplateCode
	}
	if g.InviteLink == "" {
		return ErrEmptyInviteLink
	}

	switch g.Status {
	case GroupStatusReady, GroupStatusPending, GroupStatusBanned:
		return nil
	default:
		return ErrInvalidGroupStatus
	}
}
