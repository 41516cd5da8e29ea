package services

import (
	"fmt"
	"strings"

	"github.com/igorsal/bitbucket-notifier/internal/models"
	"github.com/igorsal/bitbucket-notifier/internal/payload"
)

// repoContext holds the fields repository events read. Push fields are
// only set when the payload carries a changeset.
type repoContext struct {
	ActorName     payload.Value
	ActorUsername payload.Value
	RepoName      payload.Value
	RepoURL       payload.Value
	Reason        payload.Value

	HasPush    bool
	PushType   payload.Value
	PushName   payload.Value
	PushForced bool
	Commits    []payload.Payload
}

func extractRepo(p payload.Payload) repoContext {
	c := repoContext{
		ActorName:     p.Lookup("actor.display_name"),
		ActorUsername: username(p, "actor"),
		RepoName:      p.Lookup("repository.name"),
		RepoURL:       p.Lookup("repository.links.html.href"),
		Reason:        p.Lookup("repository.reason"),
	}

	change := p.Lookup("push.changes[0]").Object()
	if change == nil {
		return c
	}

	// A deleted ref has no "new" side; describe the ref that went away.
	ref := change.Lookup("new").Object()
	if ref == nil {
		ref = change.Lookup("old").Object()
	}

	c.HasPush = true
	c.PushForced = change.Lookup("forced").Bool()
	c.Commits = change.Lookup("commits").Objects()
	if ref != nil {
		c.PushType = ref.Lookup("type")
		c.PushName = ref.Lookup("name")
	}
	return c
}

func (b *messageBuilder) repoBase(c repoContext) *models.Notification {
	attachment := models.Attachment{
		Title:      c.RepoName.String(),
		TitleLink:  c.RepoURL.String(),
		Color:      models.ColorBlue,
		Fields:     []models.Field{},
		MarkdownIn: []string{"pretext", "fields"},
	}
	if c.Reason.NonEmpty() {
		attachment.AddField("Reason", c.Reason.String(), false)
	}
	return &models.Notification{Attachments: []models.Attachment{attachment}}
}

func (b *messageBuilder) repoPush(p payload.Payload) *models.Notification {
	c := extractRepo(p)
	n := b.repoBase(c)
	a := &n.Attachments[0]

	verb, actorTitle := "Pushed", "Pushed By"
	if c.PushForced {
		verb, actorTitle = "REBASED", "Rebased By"
	}

	a.Pretext = fmt.Sprintf("%d Commits %s", len(c.Commits), verb)
	a.Fallback = fmt.Sprintf("[%s] %s", c.RepoName.String(), a.Pretext)

	if c.HasPush {
		refTitle := capitalize(c.PushType.String())
		if refTitle == "" {
			refTitle = "Ref"
		}
		a.AddField(refTitle, c.PushName.String(), true)
	}
	a.AddField(actorTitle, b.mentions.Mention(c.ActorUsername, c.ActorName), true)

	if len(c.Commits) > 0 {
		lines := make([]string, 0, len(c.Commits))
		for _, commit := range c.Commits {
			lines = append(lines, b.commitLine(commit))
		}
		a.AddField("Commits", strings.Join(lines, "\n"), false)
	}
	return n
}

func (b *messageBuilder) commitLine(commit payload.Payload) string {
	hash := Truncate(commit.Lookup("hash").String(), commitHashLength, false)
	message := FormatCommitMessage(commit.Lookup("message").String())

	author := b.mentions.MentionUser(commit.Lookup("author.user").Object())
	if author == "" {
		author = commit.Lookup("author.raw").String()
	}

	link := commit.Lookup("links.html.href")
	if !link.NonEmpty() {
		return fmt.Sprintf("`%s` %s - %s", hash, message, author)
	}
	return fmt.Sprintf("<%s|%s> %s - %s", link.String(), hash, message, author)
}
