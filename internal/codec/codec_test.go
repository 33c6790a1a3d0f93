package codec

import (
	"errors"
	"net/http"
	"testing"

	"github.com/lewtec/imgserver/internal/domain"
)

func TestDecodeHTTP(t *testing.T) {
	t.Run("GetImage blob is a get", func(t *testing.T) {
		got := DecodeHTTP([]byte(`{"GetImage":"abc"}`))
		if got != domain.GetImageRequest("abc") {
			t.Errorf("DecodeHTTP() = %+v, want GetImage(abc)", got)
		}
	})

	t.Run("anything else is an upload", func(t *testing.T) {
		blobs := map[string][]byte{
			"empty object":    []byte(`{}`),
			"unknown key":     []byte(`{"foo":1}`),
			"explicit upload": []byte(`{"UploadImage":null}`),
			"bad get id":      []byte(`{"GetImage":42}`),
			"png header":      []byte("\x89PNG\r\n\x1a\n\x00\x00"),
			"plain text":      []byte("hello"),
			"empty":           {},
			"nil":             nil,
		}
		for name, blob := range blobs {
			t.Run(name, func(t *testing.T) {
				got := DecodeHTTP(blob)
				if got.Op != domain.OpUploadImage {
					t.Errorf("DecodeHTTP(%q) = %+v, want UploadImage", blob, got)
				}
			})
		}
	})
}

func TestDecodeNative(t *testing.T) {
	t.Run("parses requests", func(t *testing.T) {
		got, err := DecodeNative([]byte(`{"UploadImage":null}`))
		if err != nil || got != domain.UploadImageRequest() {
			t.Errorf("DecodeNative() = %+v, %v", got, err)
		}
		got, err = DecodeNative([]byte(`{"GetImage":"id-1"}`))
		if err != nil || got != domain.GetImageRequest("id-1") {
			t.Errorf("DecodeNative() = %+v, %v", got, err)
		}
	})

	t.Run("malformed payloads are errors, not uploads", func(t *testing.T) {
		for _, body := range []string{`{}`, `{"foo":1}`, `not json`, ``, `{"GetImage":42}`} {
			_, err := DecodeNative([]byte(body))
			if !errors.Is(err, ErrMalformedRequest) {
				t.Errorf("DecodeNative(%q) error = %v, want ErrMalformedRequest", body, err)
			}
		}
	})
}

func TestEncodeHTTP(t *testing.T) {
	tests := []struct {
		name   string
		result domain.Result[string]
		status int
		body   string
	}{
		{"ok identifier", domain.Ok("3f2a"), http.StatusOK, `"3f2a"`},
		{"ok base64", domain.Ok("AQID"), http.StatusOK, `"AQID"`},
		{"error text", domain.Err[string](`image not found: "x"`), http.StatusInternalServerError, `"image not found: \"x\""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeHTTP(tt.result)
			if got.Status != tt.status {
				t.Errorf("Status = %d, want %d", got.Status, tt.status)
			}
			if string(got.Body) != tt.body {
				t.Errorf("Body = %s, want %s", got.Body, tt.body)
			}
		})
	}
}

func TestEncodeNative(t *testing.T) {
	body, err := EncodeNative(domain.GetImageResponse(domain.Ok("AQID")))
	if err != nil {
		t.Fatalf("EncodeNative() error = %v", err)
	}
	if string(body) != `{"GetImage":{"Ok":"AQID"}}` {
		t.Errorf("EncodeNative() = %s", body)
	}

	reply, err := NativeReply(domain.UploadImageResponse(domain.Err[string]("no blob")))
	if err != nil {
		t.Fatalf("NativeReply() error = %v", err)
	}
	if string(reply.Body) != `{"UploadImage":{"Err":"no blob"}}` || reply.Blob != nil {
		t.Errorf("NativeReply() = %s, blob %v", reply.Body, reply.Blob)
	}

	if _, err := EncodeNative(domain.Response{}); err == nil {
		t.Error("Expected error for zero response")
	}
}
