package http_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	sharedhttp "github.com/paldcore/paldcore/pkg/shared/http"
)

func TestCORS(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "CORS Suite")
}

var _ = Describe("CORS policy", func() {
	var testHandler http.Handler

	BeforeEach(func() {
		testHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	AfterEach(func() {
		_ = os.Unsetenv("CORS_ALLOWED_ORIGINS")
		_ = os.Unsetenv("CORS_ALLOWED_METHODS")
		_ = os.Unsetenv("CORS_ALLOW_CREDENTIALS")
	})

	DescribeTable("authorizes or denies cross-origin requests by whitelist",
		func(configuredOrigins, requestOrigin string, shouldBeAuthorized bool) {
			_ = os.Setenv("CORS_ALLOWED_ORIGINS", configuredOrigins)
			opts := sharedhttp.FromEnvironment()
			handler := sharedhttp.Handler(opts)(testHandler)

			req := httptest.NewRequest("GET", "/process", nil)
			req.Header.Set("Origin", requestOrigin)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			allowOrigin := rec.Header().Get("Access-Control-Allow-Origin")
			if shouldBeAuthorized {
				Expect(allowOrigin).To(SatisfyAny(Equal(requestOrigin), Equal("*")))
			} else {
				Expect(allowOrigin).ToNot(Equal(requestOrigin))
			}
		},
		Entry("exact match from whitelist", "https://paldcore.example", "https://paldcore.example", true),
		Entry("origin not in whitelist", "https://paldcore.example", "https://malicious.example", false),
		Entry("wildcard origin", "*", "https://any.example", true),
	)

	It("defaults to a permissive origin policy when unconfigured", func() {
		opts := sharedhttp.FromEnvironment()
		handler := sharedhttp.Handler(opts)(testHandler)

		req := httptest.NewRequest("GET", "/process", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(SatisfyAny(
			Equal("*"), Equal("http://localhost:3000"),
		))
	})
})
