package store

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// Format selects the snapshot encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// ParseFormat validates a format name from configuration
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatJSON, FormatCBOR:
		return Format(name), nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown snapshot format %q", name)
	}
}

// SnapshotOptions controls how Snapshot serializes the store
type SnapshotOptions struct {
	Format   Format
	Compress bool
}

// maxSnapshotSize caps the decompressed size Restore accepts
const maxSnapshotSize = 1 << 30

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var (
	cborEncMode cbor.EncMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("store: CBOR encoder initialization failed: " + err.Error())
	}
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("store: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxSnapshotSize))
	if err != nil {
		panic("store: zstd decoder initialization failed: " + err.Error())
	}
}

// imageBytes reads either base64 text or an array of byte numbers, the
// latter being how older state files stored images.
type imageBytes []byte

func (b imageBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(b))
}

func (b *imageBytes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return errors.New("image bytes must not be null")
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var numbers []uint8
		if err := json.Unmarshal(trimmed, &numbers); err != nil {
			return err
		}
		*b = numbers
		return nil
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return err
	}
	decoded, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

type jsonSnapshot struct {
	Images *map[string]imageBytes `json:"images"`
}

type cborSnapshot struct {
	Images *map[string][]byte `cbor:"images"`
}

// Snapshot serializes every image in the store
func (s *Store) Snapshot(opts SnapshotOptions) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch opts.Format {
	case FormatJSON, "":
		images := make(map[string]imageBytes, len(s.images))
		for id, b := range s.images {
			images[id] = b
		}
		data, err = json.Marshal(jsonSnapshot{Images: &images})
	case FormatCBOR:
		images := make(map[string][]byte, len(s.images))
		for id, b := range s.images {
			images[id] = b
		}
		data, err = cborEncMode.Marshal(cborSnapshot{Images: &images})
	default:
		return nil, fmt.Errorf("unknown snapshot format %q", opts.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("while encoding %s snapshot: %w", opts.Format, err)
	}
	if opts.Compress {
		data = zstdEncoder.EncodeAll(data, nil)
	}
	return data, nil
}

// Restore rebuilds a store from a snapshot. Malformed input yields an
// error, never a partially filled store.
func Restore(data []byte) (*Store, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		decompressed, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("while decompressing snapshot: %w", err)
		}
		data = decompressed
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty snapshot")
	}

	var images map[string][]byte
	if trimmed[0] == '{' {
		var snap jsonSnapshot
		if err := json.Unmarshal(trimmed, &snap); err != nil {
			return nil, fmt.Errorf("while decoding json snapshot: %w", err)
		}
		if snap.Images == nil {
			return nil, errors.New("snapshot has no images field")
		}
		images = make(map[string][]byte, len(*snap.Images))
		for id, b := range *snap.Images {
			images[id] = b
		}
	} else {
		var snap cborSnapshot
		if err := cbor.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("while decoding cbor snapshot: %w", err)
		}
		if snap.Images == nil {
			return nil, errors.New("snapshot has no images field")
		}
		images = *snap.Images
	}

	restored := New()
	for id, b := range images {
		if id == "" {
			return nil, errors.New("snapshot contains an empty identifier")
		}
		if b == nil {
			b = []byte{}
		}
		restored.images[id] = b
	}
	return restored, nil
}
