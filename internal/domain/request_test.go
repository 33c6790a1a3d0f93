package domain

import (
	"encoding/json"
	"testing"
)

func TestRequest_MarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		request Request
		want    string
	}{
		{"upload", UploadImageRequest(), `{"UploadImage":null}`},
		{"get", GetImageRequest("abc"), `{"GetImage":"abc"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.request)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}
		})
	}

	t.Run("unknown operation fails", func(t *testing.T) {
		if _, err := json.Marshal(Request{}); err == nil {
			t.Error("Expected error for zero request")
		}
	})
}

func TestRequest_UnmarshalJSON(t *testing.T) {
	t.Run("accepts known variants", func(t *testing.T) {
		cases := map[string]Request{
			`{"UploadImage":null}`:   UploadImageRequest(),
			`"UploadImage"`:          UploadImageRequest(),
			`{"GetImage":"some-id"}`: GetImageRequest("some-id"),
			` {"GetImage" : "x y"} `: GetImageRequest("x y"),
		}
		for input, want := range cases {
			var got Request
			if err := json.Unmarshal([]byte(input), &got); err != nil {
				t.Errorf("Unmarshal(%s) error = %v", input, err)
				continue
			}
			if got != want {
				t.Errorf("Unmarshal(%s) = %+v, want %+v", input, got, want)
			}
		}
	})

	t.Run("rejects everything else", func(t *testing.T) {
		inputs := []string{
			`{}`,
			`{"foo":1}`,
			`{"GetImage":1}`,
			`{"GetImage":null}`,
			`{"UploadImage":{}}`,
			`{"UploadImage":null,"GetImage":"a"}`,
			`"GetImage"`,
			`[]`,
			`not json`,
		}
		for _, input := range inputs {
			var got Request
			if err := json.Unmarshal([]byte(input), &got); err == nil {
				t.Errorf("Unmarshal(%s) expected error, got %+v", input, got)
			}
		}
	})
}

func TestResponse_JSON(t *testing.T) {
	tests := []struct {
		name     string
		response Response
		want     string
	}{
		{"upload ok", UploadImageResponse(Ok("id-1")), `{"UploadImage":{"Ok":"id-1"}}`},
		{"upload err", UploadImageResponse(Err[string]("boom")), `{"UploadImage":{"Err":"boom"}}`},
		{"get ok", GetImageResponse(Ok("AQID")), `{"GetImage":{"Ok":"AQID"}}`},
		{"get err", GetImageResponse(Err[string]("image not found")), `{"GetImage":{"Err":"image not found"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.response)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}

			var decoded Response
			if err := json.Unmarshal(got, &decoded); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if decoded != tt.response {
				t.Errorf("Unmarshal() = %+v, want %+v", decoded, tt.response)
			}
		})
	}

	t.Run("rejects result with both keys", func(t *testing.T) {
		var decoded Response
		if err := json.Unmarshal([]byte(`{"GetImage":{"Ok":"a","Err":"b"}}`), &decoded); err == nil {
			t.Error("Expected error for ambiguous result")
		}
	})
}
