// Package codec turns inbound payloads into requests and results into
// transport shaped replies.
//
// The two transports decode differently on purpose. A native body must
// be a well formed request. An HTTP blob that is not a GetImage request
// is treated as the bytes of an image upload.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/lewtec/imgserver/internal/domain"
	"github.com/lewtec/imgserver/internal/host"
)

// ErrMalformedRequest wraps every native decode failure
var ErrMalformedRequest = errors.New("malformed request")

const jsonMIME = "application/json"

// DecodeHTTP classifies an HTTP blob. Only a blob that parses as a
// GetImage request is a get; everything else is an upload.
func DecodeHTTP(blob []byte) domain.Request {
	var req domain.Request
	if err := json.Unmarshal(blob, &req); err == nil && req.Op == domain.OpGetImage {
		return req
	}
	return domain.UploadImageRequest()
}

// DecodeNative parses a native message body strictly
func DecodeNative(body []byte) (domain.Request, error) {
	var req domain.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return domain.Request{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return req, nil
}

// HTTPResponse is a status code and a JSON body
type HTTPResponse struct {
	Status int
	Body   []byte
}

// EncodeHTTP maps Ok to 200 with the JSON encoded value and Err to 500
// with the JSON encoded error text
func EncodeHTTP(result domain.Result[string]) HTTPResponse {
	if result.IsOk() {
		body, _ := json.Marshal(result.Value)
		return HTTPResponse{Status: http.StatusOK, Body: body}
	}
	body, _ := json.Marshal(result.Error)
	return HTTPResponse{Status: http.StatusInternalServerError, Body: body}
}

// EncodeNative serializes a typed response
func EncodeNative(resp domain.Response) ([]byte, error) {
	return json.Marshal(resp)
}

// NativeReply builds the reply for a native request
func NativeReply(resp domain.Response) (host.Reply, error) {
	body, err := EncodeNative(resp)
	if err != nil {
		return host.Reply{}, err
	}
	return host.Reply{Body: body}, nil
}
