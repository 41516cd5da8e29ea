package services_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/igorsal/bitbucket-notifier/internal/config"
	"github.com/igorsal/bitbucket-notifier/internal/models"
	"github.com/igorsal/bitbucket-notifier/internal/services"
	"github.com/igorsal/bitbucket-notifier/pkg/logger"
)

var _ = Describe("Pull request notifications", func() {
	var (
		router  *services.Router
		mapping config.UserMapping
	)

	BeforeEach(func() {
		mapping = config.UserMapping{"alice": "alice_slack", "bob": "bob_slack", "carol": "carol_slack"}
		router = services.NewRouter(config.NotifyConfig{UserMapping: mapping}, logger.NewNopAdapter())
	})

	fieldValue := func(a models.Attachment, title string) string {
		f, ok := a.Field(title)
		Expect(ok).To(BeTrue(), "missing field %q", title)
		return f.Value
	}

	Context("pullrequest:created", func() {
		It("renders the created summary without reviewers", func() {
			n, err := router.Route("pullrequest:created", pullRequestPayload())
			Expect(err).ToNot(HaveOccurred())
			Expect(n.Attachments).To(HaveLen(1))

			a := onlyAttachment(n)
			Expect(a.Pretext).To(ContainSubstring("Created"))
			Expect(a.Fallback).To(ContainSubstring("Created"))
			Expect(a.Color).To(Equal(models.ColorBlue))
			Expect(a.Title).To(Equal("Fix bug"))
			Expect(a.TitleLink).To(Equal("https://bitbucket.org/team/notifier/pull-requests/1"))
			Expect(fieldValue(a, "Author")).To(Equal("@alice_slack"))
			Expect(fieldValue(a, "Repository")).To(Equal("notifier: `feature/fix` → `main`"))

			_, hasReviewers := a.Field("Reviewers")
			Expect(hasReviewers).To(BeFalse())
			_, hasReason := a.Field("Reason")
			Expect(hasReason).To(BeFalse())
		})

		It("omits reviewers when the feature is disabled", func() {
			p := pullRequestPayload()
			p["pullrequest"].(map[string]interface{})["reviewers"] = []interface{}{user("bob", "Bob")}

			n, err := router.Route("pullrequest:created", p)
			Expect(err).ToNot(HaveOccurred())
			_, hasReviewers := onlyAttachment(n).Field("Reviewers")
			Expect(hasReviewers).To(BeFalse())
		})

		It("mentions reviewers when the feature is enabled", func() {
			router = services.NewRouter(config.NotifyConfig{UserMapping: mapping, MentionReviewers: true}, logger.NewNopAdapter())
			p := pullRequestPayload()
			p["pullrequest"].(map[string]interface{})["reviewers"] = []interface{}{
				user("bob", "Bob"),
				user("carol", "Carol"),
			}

			n, err := router.Route("pullrequest:created", p)
			Expect(err).ToNot(HaveOccurred())
			Expect(fieldValue(onlyAttachment(n), "Reviewers")).To(Equal("@bob_slack, @carol_slack"))
		})

		It("omits an empty reviewer list when the feature is enabled", func() {
			router = services.NewRouter(config.NotifyConfig{UserMapping: mapping, MentionReviewers: true}, logger.NewNopAdapter())

			n, err := router.Route("pullrequest:created", pullRequestPayload())
			Expect(err).ToNot(HaveOccurred())
			_, hasReviewers := onlyAttachment(n).Field("Reviewers")
			Expect(hasReviewers).To(BeFalse())
		})
	})

	DescribeTable("actor events",
		func(eventKey, summary string, color models.Color, actorTitle string) {
			n, err := router.Route(eventKey, pullRequestPayload())
			Expect(err).ToNot(HaveOccurred())

			a := onlyAttachment(n)
			Expect(a.Pretext).To(ContainSubstring(summary))
			Expect(a.Color).To(Equal(color))
			Expect(fieldValue(a, "Author")).To(Equal("@alice_slack"))
			Expect(fieldValue(a, actorTitle)).To(Equal("@bob_slack"))
		},
		Entry("updated", "pullrequest:updated", "Updated", models.ColorBlue, "Updated By"),
		Entry("approved", "pullrequest:approved", "Approved", models.ColorGreen, "Approved By"),
		Entry("unapproved", "pullrequest:unapproved", "Unapproved", models.ColorYellow, "Unapproved By"),
		Entry("rejected", "pullrequest:rejected", "Rejected", models.ColorRed, "Rejected By"),
		Entry("fulfilled", "pullrequest:fulfilled", "Merged", models.ColorGreen, "Merged By"),
	)

	It("adds the repository and branches when merged", func() {
		n, err := router.Route("pullrequest:fulfilled", pullRequestPayload())
		Expect(err).ToNot(HaveOccurred())
		Expect(fieldValue(onlyAttachment(n), "Repository")).To(ContainSubstring("`main`"))
	})

	It("appends the reason field when a reason is given", func() {
		p := pullRequestPayload()
		p["pullrequest"].(map[string]interface{})["reason"] = "Superseded by #2"

		n, err := router.Route("pullrequest:rejected", p)
		Expect(err).ToNot(HaveOccurred())

		a := onlyAttachment(n)
		Expect(a.Fields[0].Title).To(Equal("Reason"))
		Expect(a.Fields[0].Value).To(Equal("Superseded by #2"))
	})

	Context("comment events", func() {
		It("truncates long comment bodies", func() {
			body := strings.Repeat("a", 150)
			n, err := router.Route("pullrequest:comment_created", withComment(pullRequestPayload(), body))
			Expect(err).ToNot(HaveOccurred())

			a := onlyAttachment(n)
			Expect(a.Pretext).To(ContainSubstring("Comment Added"))
			Expect(a.Color).To(Equal(models.ColorGreen))
			Expect(fieldValue(a, "Comment")).To(Equal(strings.Repeat("a", 100) + " [...]"))
			Expect(fieldValue(a, "Commented By")).To(Equal("@bob_slack"))
			Expect(a.TitleLink).To(Equal("https://bitbucket.org/team/notifier/pull-requests/1#comment-9"))
		})

		It("keeps short comment bodies intact", func() {
			n, err := router.Route("pullrequest:comment_updated", withComment(pullRequestPayload(), "LGTM"))
			Expect(err).ToNot(HaveOccurred())

			a := onlyAttachment(n)
			Expect(a.Pretext).To(ContainSubstring("Comment Updated"))
			Expect(a.Color).To(Equal(models.ColorYellow))
			Expect(fieldValue(a, "Comment")).To(Equal("LGTM"))
		})

		It("renders deleted comments in yellow", func() {
			n, err := router.Route("pullrequest:comment_deleted", withComment(pullRequestPayload(), "gone"))
			Expect(err).ToNot(HaveOccurred())

			a := onlyAttachment(n)
			Expect(a.Pretext).To(ContainSubstring("Comment Deleted"))
			Expect(a.Color).To(Equal(models.ColorYellow))
			Expect(fieldValue(a, "Author")).To(Equal("@alice_slack"))
		})

		It("falls back to the pull request link without a comment URL", func() {
			n, err := router.Route("pullrequest:comment_created", pullRequestPayload())
			Expect(err).ToNot(HaveOccurred())
			Expect(onlyAttachment(n).TitleLink).To(Equal("https://bitbucket.org/team/notifier/pull-requests/1"))
		})
	})

	Context("user mentions", func() {
		It("falls back to the raw username when unmapped", func() {
			p := pullRequestPayload()
			p["pullrequest"].(map[string]interface{})["author"] = user("dave", "Dave")

			n, err := router.Route("pullrequest:updated", p)
			Expect(err).ToNot(HaveOccurred())
			Expect(fieldValue(onlyAttachment(n), "Author")).To(Equal("@dave"))
		})

		It("uses the nickname when no username is sent", func() {
			p := pullRequestPayload()
			p["pullrequest"].(map[string]interface{})["author"] = map[string]interface{}{
				"nickname":     "alice",
				"display_name": "Alice",
			}

			n, err := router.Route("pullrequest:updated", p)
			Expect(err).ToNot(HaveOccurred())
			Expect(fieldValue(onlyAttachment(n), "Author")).To(Equal("@alice_slack"))
		})

		It("uses the display name when no handle is known", func() {
			p := pullRequestPayload()
			p["pullrequest"].(map[string]interface{})["author"] = map[string]interface{}{"display_name": "Erin"}

			n, err := router.Route("pullrequest:updated", p)
			Expect(err).ToNot(HaveOccurred())
			Expect(fieldValue(onlyAttachment(n), "Author")).To(Equal("Erin"))
		})
	})
})
