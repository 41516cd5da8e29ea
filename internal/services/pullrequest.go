package services

import (
	"fmt"
	"strings"

	"github.com/igorsal/bitbucket-notifier/internal/config"
	"github.com/igorsal/bitbucket-notifier/internal/models"
	"github.com/igorsal/bitbucket-notifier/internal/payload"
)

type messageBuilder struct {
	mentions         mentioner
	mentionReviewers bool
}

func newMessageBuilder(cfg config.NotifyConfig) *messageBuilder {
	return &messageBuilder{
		mentions:         mentioner{mapping: cfg.UserMapping},
		mentionReviewers: cfg.MentionReviewers,
	}
}

// pullRequestContext holds the fields every pull request event reads
type pullRequestContext struct {
	AuthorName        payload.Value
	AuthorUsername    payload.Value
	URL               payload.Value
	Title             payload.Value
	ActorName         payload.Value
	ActorUsername     payload.Value
	SourceBranch      payload.Value
	DestinationBranch payload.Value
	RepoName          payload.Value
	Reason            payload.Value
	CommentURL        payload.Value
	CommentContentRaw payload.Value
	Reviewers         []payload.Payload
}

func extractPullRequest(p payload.Payload) pullRequestContext {
	return pullRequestContext{
		AuthorName:        p.Lookup("pullrequest.author.display_name"),
		AuthorUsername:    username(p, "pullrequest.author"),
		URL:               p.Lookup("pullrequest.links.html.href"),
		Title:             p.Lookup("pullrequest.title"),
		ActorName:         p.Lookup("actor.display_name"),
		ActorUsername:     username(p, "actor"),
		SourceBranch:      p.Lookup("pullrequest.source.branch.name"),
		DestinationBranch: p.Lookup("pullrequest.destination.branch.name"),
		RepoName:          p.Lookup("repository.name"),
		Reason:            p.Lookup("pullrequest.reason"),
		CommentURL:        p.Lookup("comment.links.html.href"),
		CommentContentRaw: p.Lookup("comment.content.raw"),
		Reviewers:         p.Lookup("pullrequest.reviewers").Objects(),
	}
}

// username prefers the legacy username and falls back to the nickname
// Bitbucket sends since usernames were removed from its API.
func username(p payload.Payload, prefix string) payload.Value {
	if v := p.Lookup(prefix + ".username"); v.NonEmpty() {
		return v
	}
	return p.Lookup(prefix + ".nickname")
}

func (b *messageBuilder) author(c pullRequestContext) string {
	return b.mentions.Mention(c.AuthorUsername, c.AuthorName)
}

func (b *messageBuilder) actor(c pullRequestContext) string {
	return b.mentions.Mention(c.ActorUsername, c.ActorName)
}

// pullRequestBase builds the one-attachment skeleton shared by all pull
// request events.
func (b *messageBuilder) pullRequestBase(c pullRequestContext) *models.Notification {
	attachment := models.Attachment{
		Title:      c.Title.String(),
		TitleLink:  c.URL.String(),
		Color:      models.ColorBlue,
		Fields:     []models.Field{},
		MarkdownIn: []string{"pretext", "fields"},
	}
	if c.Reason.NonEmpty() {
		attachment.AddField("Reason", c.Reason.String(), false)
	}
	return &models.Notification{Attachments: []models.Attachment{attachment}}
}

// summarize sets the pretext and fallback for a pull request summary
func summarize(a *models.Attachment, c pullRequestContext, summary string) {
	a.Pretext = "Pull Request " + summary
	a.Fallback = fmt.Sprintf("[%s] Pull Request %s: %s", c.RepoName.String(), summary, c.Title.String())
}

func (b *messageBuilder) pullRequestEvent(p payload.Payload, summary string, color models.Color, actorTitle string) *models.Notification {
	c := extractPullRequest(p)
	n := b.pullRequestBase(c)
	a := &n.Attachments[0]

	summarize(a, c, summary)
	a.Color = color
	a.AddField("Author", b.author(c), true)
	a.AddField(actorTitle, b.actor(c), true)
	return n
}

func branchesField(c pullRequestContext) string {
	return fmt.Sprintf("%s: `%s` → `%s`", c.RepoName.String(), c.SourceBranch.String(), c.DestinationBranch.String())
}

func (b *messageBuilder) pullRequestCreated(p payload.Payload) *models.Notification {
	c := extractPullRequest(p)
	n := b.pullRequestBase(c)
	a := &n.Attachments[0]

	summarize(a, c, "Created")
	a.AddField("Repository", branchesField(c), false)
	a.AddField("Author", b.author(c), true)

	if b.mentionReviewers && len(c.Reviewers) > 0 {
		reviewers := make([]string, 0, len(c.Reviewers))
		for _, reviewer := range c.Reviewers {
			if mention := b.mentions.MentionUser(reviewer); mention != "" {
				reviewers = append(reviewers, mention)
			}
		}
		if len(reviewers) > 0 {
			a.AddField("Reviewers", strings.Join(reviewers, ", "), true)
		}
	}
	return n
}

func (b *messageBuilder) pullRequestUpdated(p payload.Payload) *models.Notification {
	return b.pullRequestEvent(p, "Updated", models.ColorBlue, "Updated By")
}

func (b *messageBuilder) pullRequestApproved(p payload.Payload) *models.Notification {
	return b.pullRequestEvent(p, "Approved", models.ColorGreen, "Approved By")
}

func (b *messageBuilder) pullRequestUnapproved(p payload.Payload) *models.Notification {
	return b.pullRequestEvent(p, "Unapproved", models.ColorYellow, "Unapproved By")
}

func (b *messageBuilder) pullRequestRejected(p payload.Payload) *models.Notification {
	return b.pullRequestEvent(p, "Rejected", models.ColorRed, "Rejected By")
}

func (b *messageBuilder) pullRequestFulfilled(p payload.Payload) *models.Notification {
	c := extractPullRequest(p)
	n := b.pullRequestBase(c)
	a := &n.Attachments[0]

	summarize(a, c, "Merged")
	a.Color = models.ColorGreen
	a.AddField("Repository", branchesField(c), false)
	a.AddField("Author", b.author(c), true)
	a.AddField("Merged By", b.actor(c), true)
	return n
}

func (b *messageBuilder) pullRequestComment(p payload.Payload, summary string, color models.Color) *models.Notification {
	c := extractPullRequest(p)
	n := b.pullRequestBase(c)
	a := &n.Attachments[0]

	summarize(a, c, summary)
	a.Color = color
	if c.CommentURL.NonEmpty() {
		a.TitleLink = c.CommentURL.String()
	}
	a.AddField("Author", b.author(c), true)
	a.AddField("Comment", TruncateComment(c.CommentContentRaw.String()), false)
	a.AddField("Commented By", b.actor(c), true)
	return n
}

func (b *messageBuilder) pullRequestCommentCreated(p payload.Payload) *models.Notification {
	return b.pullRequestComment(p, "Comment Added", models.ColorGreen)
}

func (b *messageBuilder) pullRequestCommentUpdated(p payload.Payload) *models.Notification {
	return b.pullRequestComment(p, "Comment Updated", models.ColorYellow)
}

func (b *messageBuilder) pullRequestCommentDeleted(p payload.Payload) *models.Notification {
	return b.pullRequestComment(p, "Comment Deleted", models.ColorYellow)
}
