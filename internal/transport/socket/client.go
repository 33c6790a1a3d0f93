package socket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/lewtec/imgserver/internal/domain"
)

const (
	dialTimeout         = 5 * time.Second
	responseReadTimeout = 60 * time.Second
	maxResponseSize     = 1 << 30
)

// RemoteError is an error reported by the server instead of a reply
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "imgserver: " + e.Message
}

// Call sends frame over a new connection and reads the reply. A reply
// carrying an error is returned as *RemoteError.
func Call(ctx context.Context, socketPath string, frame Frame) (*ReplyFrame, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("while connecting to %s: %w", socketPath, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(responseReadTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetDeadline(deadline)

	if err := cbor.NewEncoder(conn).Encode(frame); err != nil {
		return nil, fmt.Errorf("while writing request: %w", err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	var reply ReplyFrame
	if err := cbor.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&reply); err != nil {
		return nil, fmt.Errorf("while reading reply: %w", err)
	}
	if reply.Error != "" {
		return nil, &RemoteError{Message: reply.Error}
	}
	return &reply, nil
}

func callNative(ctx context.Context, socketPath string, req domain.Request, blob *BlobFrame) (*domain.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	reply, err := Call(ctx, socketPath, Frame{Body: body, Blob: blob})
	if err != nil {
		return nil, err
	}
	var resp domain.Response
	if err := json.Unmarshal(reply.Body, &resp); err != nil {
		return nil, fmt.Errorf("while decoding reply: %w", err)
	}
	if resp.Op != req.Op {
		return nil, fmt.Errorf("got %s reply for %s request", resp.Op, req.Op)
	}
	if !resp.Result.IsOk() {
		return nil, errors.New(resp.Result.Error)
	}
	return &resp, nil
}

// Upload stores data and returns its identifier
func Upload(ctx context.Context, socketPath string, data []byte) (string, error) {
	resp, err := callNative(ctx, socketPath, domain.UploadImageRequest(), &BlobFrame{Bytes: data})
	if err != nil {
		return "", err
	}
	return resp.Result.Value, nil
}

// Get fetches the bytes stored under id
func Get(ctx context.Context, socketPath string, id string) ([]byte, error) {
	resp, err := callNative(ctx, socketPath, domain.GetImageRequest(id), nil)
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(resp.Result.Value)
	if err != nil {
		return nil, fmt.Errorf("while decoding image %s: %w", id, err)
	}
	return data, nil
}
