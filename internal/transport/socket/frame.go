package socket

import "github.com/lewtec/imgserver/internal/host"

// BlobFrame is a blob on the wire. A nil *BlobFrame means no blob, an
// empty Bytes is an attached but empty blob.
type BlobFrame struct {
	MIME  string `cbor:"mime,omitempty"`
	Bytes []byte `cbor:"bytes"`
}

// Frame is one request sent to the process. An empty Source means the
// server's configured client address.
type Frame struct {
	Source string     `cbor:"source,omitempty"`
	Body   []byte     `cbor:"body"`
	Blob   *BlobFrame `cbor:"blob,omitempty"`
}

// ReplyFrame carries the process reply, or Error when there is none
type ReplyFrame struct {
	Body  []byte     `cbor:"body,omitempty"`
	Blob  *BlobFrame `cbor:"blob,omitempty"`
	Error string     `cbor:"error,omitempty"`
}

func (b *BlobFrame) toHost() *host.Blob {
	if b == nil {
		return nil
	}
	return &host.Blob{MIME: b.MIME, Bytes: b.Bytes}
}

func blobFrame(b *host.Blob) *BlobFrame {
	if b == nil {
		return nil
	}
	return &BlobFrame{MIME: b.MIME, Bytes: b.Bytes}
}
