package domain

import (
	"fmt"
	"strings"
)

// ComposeIndexMessage renders the HTML listing for a template's group.
// The layout is fixed: linked bold title, quoted overview, optional author
// credit, then the call to action followed by the invite link.
func ComposeIndexMessage(t *Template, inviteLink string) string {
	msg := t.IndexMessage

	var sb strings.Builder
	fmt.Fprintf(&sb, `<b><a href="%s">%s</a></b>`, msg.ResourceURL, t.Title)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "<blockquote>%s</blockquote>", msg.Overview)
	sb.WriteString("\n\n")
	if line := authorLine(msg.Author); line != "" {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString(msg.CallToAction)
	sb.WriteString(" ")
	sb.WriteString(inviteLink)

	return sb.String()
}

func authorLine(a *Author) string {
	if a == nil || a.Name == "" {
		return ""
	}

	name := a.Name
	if a.URL != "" {
		name = fmt.Sprintf(`<a href="%s">%s</a>`, a.URL, a.Name)
	}

	return fmt.Sprintf(`Support the author, %s, on <a href="%s">%s</a>`, name, a.SupportPlatformURL, a.SupportPlatform)
}

// GroupTitle is the channel title a group gets when it is published
func GroupTitle(t *Template, g *Group) string {
	return fmt.Sprintf("%s [%d]", t.Title, g.ID)
}
