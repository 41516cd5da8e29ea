package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gorilla/mux"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/igorsal/bitbucket-notifier/api/handlers"
	"github.com/igorsal/bitbucket-notifier/api/middleware"
	"github.com/igorsal/bitbucket-notifier/internal/config"
	"github.com/igorsal/bitbucket-notifier/internal/models"
	"github.com/igorsal/bitbucket-notifier/internal/services"
	pkgerrors "github.com/igorsal/bitbucket-notifier/pkg/errors"
	"github.com/igorsal/bitbucket-notifier/pkg/logger"
)

type stubRelay struct {
	sent []*models.Notification
	err  error
}

func (s *stubRelay) Send(_ context.Context, n *models.Notification) (*models.RelayResult, error) {
	s.sent = append(s.sent, n)
	if s.err != nil {
		return nil, s.err
	}
	return &models.RelayResult{StatusCode: http.StatusOK, Body: "ok"}, nil
}

type nopMetrics struct{}

func (nopMetrics) IncrementCounter(string, map[string]string)        {}
func (nopMetrics) RecordDuration(string, float64, map[string]string) {}
func (nopMetrics) SetGauge(string, float64, map[string]string)       {}

const createdBody = `{
	"actor": {"username": "bob", "display_name": "Bob"},
	"repository": {"name": "notifier"},
	"pullrequest": {
		"title": "Fix bug",
		"author": {"username": "alice", "display_name": "Alice"},
		"reviewers": []
	}
}`

var _ = Describe("WebhookHandler", func() {
	var (
		relay  *stubRelay
		router *mux.Router
	)

	BeforeEach(func() {
		log := logger.NewNopAdapter()
		relay = &stubRelay{}
		events := services.NewRouter(config.NotifyConfig{
			UserMapping: config.UserMapping{"alice": "alice_slack"},
		}, log)
		notifier := services.NewNotifierService(events, relay, log, nopMetrics{})
		handler := handlers.NewWebhookHandler(notifier, log)

		router = mux.NewRouter()
		router.Use(middleware.PanicRecoveryMiddleware(log))
		router.Use(middleware.MetricsMiddleware(nopMetrics{}))
		router.Use(middleware.LoggingMiddleware(log))
		router.HandleFunc("/webhook", handler.Handle).Methods("POST")
		router.HandleFunc("/invoke", handler.HandleInvocation).Methods("POST")
		router.HandleFunc("/health", handlers.NewHealthHandler(events, log).Handle).Methods("GET")
	})

	serve := func(path, eventKey, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		if eventKey != "" {
			req.Header.Set(models.EventKeyHeader, eventKey)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	decodeError := func(rec *httptest.ResponseRecorder) middleware.ErrorResponse {
		var resp middleware.ErrorResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		return resp
	}

	Describe("POST /webhook", func() {
		It("relays a recognized event", func() {
			rec := serve("/webhook", "pullrequest:created", createdBody)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp handlers.SuccessResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp).To(Equal(handlers.SuccessResponse{Status: "success", Result: "ok"}))

			Expect(relay.sent).To(HaveLen(1))
			a := relay.sent[0].Attachments[0]
			author, ok := a.Field("Author")
			Expect(ok).To(BeTrue())
			Expect(author.Value).To(Equal("@alice_slack"))
		})

		It("rejects an unknown event without relaying", func() {
			rec := serve("/webhook", "deployment:started", createdBody)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			resp := decodeError(rec)
			Expect(resp.Error.Type).To(Equal(string(pkgerrors.ErrorTypeUnrecognizedEvent)))
			Expect(resp.Error.Message).To(ContainSubstring("deployment:started"))
			Expect(relay.sent).To(BeEmpty())
		})

		It("rejects a request without an event key", func() {
			rec := serve("/webhook", "", createdBody)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(relay.sent).To(BeEmpty())
		})

		It("rejects invalid JSON", func() {
			rec := serve("/webhook", "pullrequest:created", "{not json")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(rec).Error.Type).To(Equal(string(pkgerrors.ErrorTypeValidation)))
		})

		It("maps transport failures to bad gateway", func() {
			relay.err = pkgerrors.NewTransportError(errors.New("dial tcp: timeout"))

			rec := serve("/webhook", "pullrequest:created", createdBody)
			Expect(rec.Code).To(Equal(http.StatusBadGateway))
			resp := decodeError(rec)
			Expect(resp.Error.Type).To(Equal(string(pkgerrors.ErrorTypeTransport)))
			Expect(resp.Error.Message).To(Equal("error:dial tcp: timeout"))
		})
	})

	Describe("POST /invoke", func() {
		It("accepts the envelope form", func() {
			rec := serve("/invoke", "", `{"_event_key": "pullrequest:approved", "payload": `+createdBody+`}`)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(relay.sent).To(HaveLen(1))
			Expect(relay.sent[0].Attachments[0].Color).To(Equal(models.ColorGreen))
		})

		DescribeTable("classifies a missing or empty event key as unrecognized",
			func(body string) {
				rec := serve("/invoke", "", body)
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
				Expect(decodeError(rec).Error.Type).To(Equal(string(pkgerrors.ErrorTypeUnrecognizedEvent)))
				Expect(relay.sent).To(BeEmpty())
			},
			Entry("missing", `{"payload": {}}`),
			Entry("empty", `{"_event_key": "", "payload": {}}`),
			Entry("malformed", `{"_event_key": "pullrequest", "payload": {}}`),
		)

		It("requires the payload", func() {
			rec := serve("/invoke", "", `{"_event_key": "repo:push"}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(relay.sent).To(BeEmpty())
		})
	})

	Describe("GET /health", func() {
		It("reports the supported events", func() {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			var resp handlers.HealthResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Status).To(Equal("healthy"))
			Expect(resp.Events).To(ContainElements("pullrequest:created", "repo:push"))
		})
	})
})
