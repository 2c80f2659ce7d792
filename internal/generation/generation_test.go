package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(endpoint string, apiKey string) *Client {
	client := NewClient(Config{Endpoint: endpoint, APIKey: apiKey, RatePerSecond: 1000, BaseBackoff: time.Millisecond}, nil, nil)
	client.sleep = func(context.Context, time.Duration) error { return nil }
	return client
}

func completionBody(content string) string {
	encoded, _ := json.Marshal(content)
	return fmt.Sprintf(`{"choices":[{"message":{"role":"assistant","content":%s}}]}`, encoded)
}

func TestGenerateSendsChatCompletion(t *testing.T) {
	var received completionRequest
	var authorization string
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		authorization = request.Header.Get("Authorization")
		if err := json.NewDecoder(request.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(writer, completionBody("```markdown\n# Widget\n\nA widget.\n```"))
	}))
	defer server.Close()

	markdown, err := newTestClient(server.URL, "secret").Generate(context.Background(), "Repository: acme/widget")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if markdown != "# Widget\n\nA widget." {
		t.Fatalf("unexpected markdown %q", markdown)
	}
	if authorization != "Bearer secret" {
		t.Fatalf("unexpected authorization header %q", authorization)
	}
	if received.Model != DefaultModel || len(received.Messages) != 2 {
		t.Fatalf("unexpected request: %+v", received)
	}
	if received.Messages[0].Role != "system" || received.Messages[1].Role != "user" {
		t.Fatalf("unexpected roles: %+v", received.Messages)
	}
	if !strings.Contains(received.Messages[1].Content, "Repository: acme/widget") {
		t.Fatalf("expected document in user prompt, got %q", received.Messages[1].Content)
	}
	if received.Reasoning != nil {
		t.Fatalf("expected reasoning to be omitted by default")
	}
}

func TestGenerateRetriesTransientFailures(t *testing.T) {
	testCases := []struct {
		name             string
		statuses         []int
		expectedAttempts int32
		expectSuccess    bool
		expectedStatus   int
	}{
		{name: "server error then success", statuses: []int{http.StatusBadGateway, http.StatusOK}, expectedAttempts: 2, expectSuccess: true},
		{name: "rate limited then success", statuses: []int{http.StatusTooManyRequests, http.StatusOK}, expectedAttempts: 2, expectSuccess: true},
		{name: "bad request is final", statuses: []int{http.StatusBadRequest}, expectedAttempts: 1, expectedStatus: http.StatusBadRequest},
		{name: "gives up after max attempts", statuses: []int{http.StatusInternalServerError, http.StatusInternalServerError, http.StatusInternalServerError, http.StatusOK}, expectedAttempts: 3, expectedStatus: http.StatusInternalServerError},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			var attempts int32
			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				index := atomic.AddInt32(&attempts, 1) - 1
				status := testCase.statuses[index]
				if status != http.StatusOK {
					writer.WriteHeader(status)
					fmt.Fprint(writer, `{"error":{"message":"provider trouble"}}`)
					return
				}
				fmt.Fprint(writer, completionBody("# Done"))
			}))
			defer server.Close()

			markdown, err := newTestClient(server.URL, "secret").Generate(context.Background(), "doc")
			if got := atomic.LoadInt32(&attempts); got != testCase.expectedAttempts {
				t.Fatalf("expected %d attempts, got %d", testCase.expectedAttempts, got)
			}
			if testCase.expectSuccess {
				if err != nil || markdown != "# Done" {
					t.Fatalf("expected success, got %q %v", markdown, err)
				}
				return
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.StatusCode != testCase.expectedStatus || apiErr.Message != "provider trouble" {
				t.Fatalf("unexpected api error: %+v", apiErr)
			}
		})
	}
}

func TestGenerateFailures(t *testing.T) {
	testCases := []struct {
		name        string
		body        string
		apiKey      string
		expectedErr error
	}{
		{name: "missing key", body: completionBody("# x"), apiKey: "", expectedErr: ErrMissingAPIKey},
		{name: "no choices", body: `{"choices":[]}`, apiKey: "secret", expectedErr: ErrEmptyCompletion},
		{name: "blank content", body: completionBody("   "), apiKey: "secret", expectedErr: ErrEmptyCompletion},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				fmt.Fprint(writer, testCase.body)
			}))
			defer server.Close()
			_, err := newTestClient(server.URL, testCase.apiKey).Generate(context.Background(), "doc")
			if !errors.Is(err, testCase.expectedErr) {
				t.Fatalf("expected %v, got %v", testCase.expectedErr, err)
			}
		})
	}
}

func TestGenerateHonorsCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	client := NewClient(Config{Endpoint: server.URL, APIKey: "secret", RatePerSecond: 1000, BaseBackoff: time.Hour}, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := client.Generate(ctx, "doc"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestAPIErrorMessage(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		expected string
	}{
		{name: "nested", body: `{"error":{"message":"quota"}}`, expected: "quota"},
		{name: "plain string", body: `{"error":"Server configuration error"}`, expected: "Server configuration error"},
		{name: "raw", body: "upstream timeout\n", expected: "upstream timeout"},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			if actual := extractErrorMessage([]byte(testCase.body)); actual != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, actual)
			}
		})
	}
	if (&APIError{StatusCode: 500}).Error() != "api error: status=500" {
		t.Fatalf("unexpected bare error text")
	}
}

func TestStripMarkdownFence(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "markdown fence", input: "```markdown\n# Title\n```", expected: "# Title"},
		{name: "uppercase language", input: "```MARKDOWN\n# Title\n```\n", expected: "# Title"},
		{name: "bare fence", input: "```\n# Title\n```", expected: "# Title"},
		{name: "no fence", input: "# Title\n", expected: "# Title\n"},
		{name: "trailing code block kept", input: "# Title\n\n```go\nfmt.Println()\n```", expected: "# Title\n\n```go\nfmt.Println()\n```"},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			if actual := StripMarkdownFence(testCase.input); actual != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, actual)
			}
		})
	}
}

func TestRenderHTML(t *testing.T) {
	rendered, err := RenderHTML("# Widget\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	if err != nil {
		t.Fatalf("RenderHTML error: %v", err)
	}
	for _, expected := range []string{"<h1>Widget</h1>", "<table>", "<td>1</td>"} {
		if !strings.Contains(rendered, expected) {
			t.Fatalf("expected %q in %s", expected, rendered)
		}
	}
}
