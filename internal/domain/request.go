package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Operation names both a request variant and the response that answers it
type Operation int

const (
	OpUploadImage Operation = iota + 1
	OpGetImage
)

const (
	uploadImageTag = "UploadImage"
	getImageTag    = "GetImage"
)

func (o Operation) String() string {
	switch o {
	case OpUploadImage:
		return uploadImageTag
	case OpGetImage:
		return getImageTag
	default:
		return fmt.Sprintf("Operation(%d)", int(o))
	}
}

// Request is either UploadImage (bytes travel in the attached blob) or
// GetImage(ID).
type Request struct {
	Op Operation
	ID string
}

// UploadImageRequest builds an UploadImage request
func UploadImageRequest() Request {
	return Request{Op: OpUploadImage}
}

// GetImageRequest builds a GetImage request for id
func GetImageRequest(id string) Request {
	return Request{Op: OpGetImage, ID: id}
}

// MarshalJSON encodes {"UploadImage":null} or {"GetImage":"<id>"}
func (r Request) MarshalJSON() ([]byte, error) {
	switch r.Op {
	case OpUploadImage:
		return []byte(`{"UploadImage":null}`), nil
	case OpGetImage:
		return json.Marshal(map[string]string{getImageTag: r.ID})
	default:
		return nil, fmt.Errorf("request: unknown operation %v", r.Op)
	}
}

// UnmarshalJSON is strict: exactly one known variant. The bare string
// "UploadImage" is also accepted for the unit variant.
func (r *Request) UnmarshalJSON(data []byte) error {
	var unit string
	if err := json.Unmarshal(data, &unit); err == nil {
		if unit == uploadImageTag {
			*r = UploadImageRequest()
			return nil
		}
		return fmt.Errorf("request: unknown variant %q", unit)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("request: %w", err)
	}
	if len(fields) != 1 {
		return fmt.Errorf("request: expected exactly one variant, got %d keys", len(fields))
	}
	for tag, raw := range fields {
		switch tag {
		case uploadImageTag:
			if !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
				return fmt.Errorf("request: UploadImage takes no payload")
			}
			*r = UploadImageRequest()
			return nil
		case getImageTag:
			if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
				return fmt.Errorf("request: GetImage requires an identifier")
			}
			var id string
			if err := json.Unmarshal(raw, &id); err != nil {
				return fmt.Errorf("request: GetImage identifier must be a string: %w", err)
			}
			*r = GetImageRequest(id)
			return nil
		default:
			return fmt.Errorf("request: unknown variant %q", tag)
		}
	}
	return nil
}

// Response mirrors Request: UploadImage carries the assigned identifier,
// GetImage the base64 text of the image.
type Response struct {
	Op     Operation
	Result Result[string]
}

// UploadImageResponse wraps the outcome of an upload
func UploadImageResponse(result Result[string]) Response {
	return Response{Op: OpUploadImage, Result: result}
}

// GetImageResponse wraps the outcome of a get
func GetImageResponse(result Result[string]) Response {
	return Response{Op: OpGetImage, Result: result}
}

// MarshalJSON encodes {"<Variant>":{"Ok"|"Err":...}}
func (r Response) MarshalJSON() ([]byte, error) {
	switch r.Op {
	case OpUploadImage, OpGetImage:
		return json.Marshal(map[string]Result[string]{r.Op.String(): r.Result})
	default:
		return nil, fmt.Errorf("response: unknown operation %v", r.Op)
	}
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var fields map[string]Result[string]
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("response: %w", err)
	}
	if len(fields) != 1 {
		return fmt.Errorf("response: expected exactly one variant, got %d keys", len(fields))
	}
	for tag, result := range fields {
		switch tag {
		case uploadImageTag:
			*r = UploadImageResponse(result)
		case getImageTag:
			*r = GetImageResponse(result)
		default:
			return fmt.Errorf("response: unknown variant %q", tag)
		}
	}
	return nil
}
