package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lewtec/imgserver/internal/host"
)

// HTTPRequest describes an incoming HTTP request. The front door sends
// it as the message body as {"Http": {...}}; the request body itself
// travels in the blob.
type HTTPRequest struct {
	Method      string            `json:"method"`
	URL         string            `json:"url"`
	BoundPath   string            `json:"bound_path"`
	Headers     map[string]string `json:"headers"`
	QueryParams map[string]string `json:"query_params"`
}

type httpServerRequest struct {
	HTTP *HTTPRequest `json:"Http,omitempty"`
}

// EncodeHTTPRequest builds the message body for an HTTP request
func EncodeHTTPRequest(req HTTPRequest) ([]byte, error) {
	return json.Marshal(httpServerRequest{HTTP: &req})
}

// ParseHTTPRequest reads the front door's message body. The body must be
// JSON; a missing Http section yields an empty HTTPRequest.
func ParseHTTPRequest(body []byte) (*HTTPRequest, error) {
	var envelope httpServerRequest
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("while parsing http request body: %w", err)
	}
	if envelope.HTTP == nil {
		return &HTTPRequest{}, nil
	}
	return envelope.HTTP, nil
}

// Header returns a header value, ignoring case
func (r *HTTPRequest) Header(name string) string {
	for key, value := range r.Headers {
		if strings.EqualFold(key, name) {
			return value
		}
	}
	return ""
}

// UserAgent returns the User-Agent header
func (r *HTTPRequest) UserAgent() string {
	return r.Header("user-agent")
}

type httpResponseHead struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers"`
}

// Reply wraps the response for the front door: the body carries status
// and headers, the blob carries the payload
func (r HTTPResponse) Reply() host.Reply {
	head, _ := json.Marshal(httpResponseHead{
		Status:  r.Status,
		Headers: map[string]string{"Content-Type": jsonMIME},
	})
	return host.Reply{
		Body: head,
		Blob: &host.Blob{MIME: jsonMIME, Bytes: r.Body},
	}
}

// ParseHTTPReply is the front door's side of Reply
func ParseHTTPReply(reply host.Reply) (status int, headers map[string]string, body []byte, err error) {
	var head httpResponseHead
	if err := json.Unmarshal(reply.Body, &head); err != nil {
		return 0, nil, nil, fmt.Errorf("while parsing http response head: %w", err)
	}
	if head.Status < 100 || head.Status > 999 {
		return 0, nil, nil, fmt.Errorf("invalid http status %d", head.Status)
	}
	if reply.Blob != nil {
		body = reply.Blob.Bytes
	}
	return head.Status, head.Headers, body, nil
}
