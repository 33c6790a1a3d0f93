package codec

import (
	"net/http"
	"testing"

	"github.com/lewtec/imgserver/internal/host"
)

func TestParseHTTPRequest(t *testing.T) {
	t.Run("round trips the envelope", func(t *testing.T) {
		body, err := EncodeHTTPRequest(HTTPRequest{
			Method:    "POST",
			URL:       "http://localhost:8080/img-server",
			BoundPath: "/img-server",
			Headers:   map[string]string{"User-Agent": "curl/8.0"},
		})
		if err != nil {
			t.Fatalf("EncodeHTTPRequest() error = %v", err)
		}
		req, err := ParseHTTPRequest(body)
		if err != nil {
			t.Fatalf("ParseHTTPRequest() error = %v", err)
		}
		if req.Method != "POST" || req.BoundPath != "/img-server" {
			t.Errorf("ParseHTTPRequest() = %+v", req)
		}
		if req.UserAgent() != "curl/8.0" {
			t.Errorf("UserAgent() = %q, want curl/8.0", req.UserAgent())
		}
	})

	t.Run("any JSON object is accepted", func(t *testing.T) {
		req, err := ParseHTTPRequest([]byte(`{"something":"else"}`))
		if err != nil {
			t.Fatalf("ParseHTTPRequest() error = %v", err)
		}
		if req.UserAgent() != "" {
			t.Errorf("UserAgent() = %q, want empty", req.UserAgent())
		}
	})

	t.Run("non JSON body is an error", func(t *testing.T) {
		for _, body := range []string{"", "not json", "[1,2]"} {
			if _, err := ParseHTTPRequest([]byte(body)); err == nil {
				t.Errorf("ParseHTTPRequest(%q) expected error", body)
			}
		}
	})
}

func TestHTTPResponse_Reply(t *testing.T) {
	reply := HTTPResponse{Status: http.StatusInternalServerError, Body: []byte(`"boom"`)}.Reply()

	status, headers, body, err := ParseHTTPReply(reply)
	if err != nil {
		t.Fatalf("ParseHTTPReply() error = %v", err)
	}
	if status != http.StatusInternalServerError {
		t.Errorf("status = %d", status)
	}
	if headers["Content-Type"] != "application/json" {
		t.Errorf("headers = %v", headers)
	}
	if string(body) != `"boom"` {
		t.Errorf("body = %s", body)
	}

	if _, _, _, err := ParseHTTPReply(host.Reply{Body: []byte(`{"status":0}`)}); err == nil {
		t.Error("Expected error for invalid status")
	}
	if _, _, _, err := ParseHTTPReply(host.Reply{Body: []byte(`{"GetImage":{"Ok":"x"}}`)}); err == nil {
		t.Error("Expected error for a native reply")
	}
}
