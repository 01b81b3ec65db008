package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MakeRequest builds a request with body encoded as JSON. A string body is
// sent verbatim so tests can post malformed JSON.
func MakeRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()

	var bodyReader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		bodyReader = bytes.NewBufferString(b)
	default:
		jsonBody, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, url, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// ParseJSONResponse parses a JSON response into the provided value
func ParseJSONResponse(t *testing.T, resp *httptest.ResponseRecorder, v any) {
	t.Helper()

	if err := json.Unmarshal(resp.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to parse JSON response: %v\nBody: %s", err, resp.Body.String())
	}
}

// AssertStatusCode checks if the response has the expected status code
func AssertStatusCode(t *testing.T, resp *httptest.ResponseRecorder, expected int) {
	t.Helper()

	if resp.Code != expected {
		t.Errorf("Expected status code %d, got %d\nBody: %s",
			expected, resp.Code, resp.Body.String())
	}
}

// AssertErrorBody checks for the {"ok": false, "error": message} body.
func AssertErrorBody(t *testing.T, resp *httptest.ResponseRecorder, message string) {
	t.Helper()

	var body struct {
		OK    *bool  `json:"ok"`
		Error string `json:"error"`
	}
	ParseJSONResponse(t, resp, &body)
	if body.OK == nil || *body.OK {
		t.Errorf("Expected \"ok\": false, body: %s", resp.Body.String())
	}
	if body.Error != message {
		t.Errorf("Expected error %q, got %q", message, body.Error)
	}
}

// SetAuthHeader sets the Authorization header with a Bearer token
func SetAuthHeader(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}
