package httpfront

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lewtec/imgserver/internal/codec"
	"github.com/lewtec/imgserver/internal/dispatch"
	"github.com/lewtec/imgserver/internal/domain"
	"github.com/lewtec/imgserver/internal/host"
	"github.com/lewtec/imgserver/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var frontDoor = host.Address{Node: "our.os", Process: host.HTTPServerProcess}

type senderFunc func(ctx context.Context, msg host.Message) error

func (f senderFunc) Deliver(ctx context.Context, msg host.Message) error {
	return f(ctx, msg)
}

func testOptions() Options {
	return Options{
		Bind:            []string{"/img-server"},
		MaxBody:         1 << 10,
		ResponseTimeout: time.Second,
	}
}

// startProcess runs a real dispatcher behind a loop
func startProcess(t *testing.T) host.Sender {
	t.Helper()
	inbox := host.NewInbox(8)
	loop := host.NewLoop(inbox, zerolog.Nop())
	d := dispatch.New(store.New(), nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		loop.Run(ctx, d)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return inbox
}

func post(t *testing.T, url string, body []byte) (int, string) {
	t.Helper()
	resp, err := http.Post(url, "application/octet-stream", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestServer_UploadThenGet(t *testing.T) {
	srv := httptest.NewServer(New(startProcess(t), frontDoor, testOptions(), zerolog.Nop()).Handler())
	defer srv.Close()

	status, body := post(t, srv.URL+"/img-server", []byte{1, 2, 3})
	require.Equal(t, http.StatusOK, status, body)
	var id string
	require.NoError(t, json.Unmarshal([]byte(body), &id))
	require.NotEmpty(t, id)

	status, body = post(t, srv.URL+"/img-server", []byte(`{"GetImage":"`+id+`"}`))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, `"AQID"`, body)

	status, body = post(t, srv.URL+"/img-server", []byte(`{"GetImage":"missing"}`))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, body, "image not found")
}

func TestServer_EmptyBodyIsBadGateway(t *testing.T) {
	srv := httptest.NewServer(New(startProcess(t), frontDoor, testOptions(), zerolog.Nop()).Handler())
	defer srv.Close()

	status, _ := post(t, srv.URL+"/img-server", nil)
	assert.Equal(t, http.StatusBadGateway, status)
}

func TestServer_Envelope(t *testing.T) {
	delivered := make(chan host.Message, 1)
	sender := senderFunc(func(ctx context.Context, msg host.Message) error {
		delivered <- msg
		return msg.Respond(codec.EncodeHTTP(domain.Ok("id")).Reply())
	})
	srv := httptest.NewServer(New(sender, frontDoor, testOptions(), zerolog.Nop()).Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/img-server?tag=cat", strings.NewReader("img"))
	require.NoError(t, err)
	req.Header.Set("User-Agent", "front-test")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	got := <-delivered
	assert.Equal(t, frontDoor, got.Source)
	require.NotNil(t, got.Blob)
	assert.Equal(t, []byte("img"), got.Blob.Bytes)

	envelope, err := codec.ParseHTTPRequest(got.Body)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, envelope.Method)
	assert.Equal(t, "/img-server", envelope.BoundPath)
	assert.Equal(t, "front-test", envelope.UserAgent())
	assert.Equal(t, "cat", envelope.QueryParams["tag"])
	assert.True(t, strings.HasSuffix(envelope.URL, "/img-server?tag=cat"), envelope.URL)
}

func TestServer_Failures(t *testing.T) {
	t.Run("body over the limit", func(t *testing.T) {
		sender := senderFunc(func(ctx context.Context, msg host.Message) error {
			t.Error("oversized request must not be delivered")
			return nil
		})
		srv := httptest.NewServer(New(sender, frontDoor, testOptions(), zerolog.Nop()).Handler())
		defer srv.Close()

		status, _ := post(t, srv.URL+"/img-server", bytes.Repeat([]byte{1}, 2<<10))
		assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	})

	t.Run("no reply before the timeout", func(t *testing.T) {
		options := testOptions()
		options.ResponseTimeout = 50 * time.Millisecond
		sender := senderFunc(func(ctx context.Context, msg host.Message) error { return nil })
		srv := httptest.NewServer(New(sender, frontDoor, options, zerolog.Nop()).Handler())
		defer srv.Close()

		status, _ := post(t, srv.URL+"/img-server", []byte("x"))
		assert.Equal(t, http.StatusGatewayTimeout, status)
	})

	t.Run("reply that is not an http response", func(t *testing.T) {
		sender := senderFunc(func(ctx context.Context, msg host.Message) error {
			return msg.Respond(host.Reply{Body: []byte(`{"GetImage":{"Ok":"x"}}`)})
		})
		srv := httptest.NewServer(New(sender, frontDoor, testOptions(), zerolog.Nop()).Handler())
		defer srv.Close()

		status, _ := post(t, srv.URL+"/img-server", []byte("x"))
		assert.Equal(t, http.StatusBadGateway, status)
	})

	t.Run("unbound path", func(t *testing.T) {
		srv := httptest.NewServer(New(startProcess(t), frontDoor, testOptions(), zerolog.Nop()).Handler())
		defer srv.Close()

		status, _ := post(t, srv.URL+"/elsewhere", []byte("x"))
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestServer_Status(t *testing.T) {
	srv := httptest.NewServer(New(startProcess(t), frontDoor, testOptions(), zerolog.Nop()).Handler())
	defer srv.Close()

	post(t, srv.URL+"/img-server", []byte("x"))

	resp, err := http.Get(srv.URL + StatusPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(data), "<h1>imgserver</h1>")
	assert.Contains(t, string(data), "<code>/img-server</code>")
	assert.Contains(t, string(data), "Forwarded requests</strong>: 1")
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var logs bytes.Buffer
	s := New(startProcess(t), frontDoor, testOptions(), zerolog.New(&logs))
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		errs <- s.Serve(ctx, ln)
	}()

	status, _ := post(t, "http://"+ln.Addr().String()+"/img-server", []byte("x"))
	assert.Equal(t, http.StatusOK, status)

	cancel()
	select {
	case err := <-errs:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.Contains(t, logs.String(), "http: served request")
}
