package imagen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storyboard/internal/imagegen"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestGenerateImage(t *testing.T) {
	tests := []struct {
		name         string
		responseBody string
		statusCode   int
		wantErr      bool
		wantErrIs    error
		wantData     []byte
		wantMIME     string
	}{
		{
			name:         "successfulImage",
			responseBody: `{"predictions": [{"bytesBase64Encoded": "` + base64.StdEncoding.EncodeToString(pngBytes) + `", "mimeType": "image/png"}]}`,
			statusCode:   http.StatusOK,
			wantData:     pngBytes,
			wantMIME:     "image/png",
		},
		{
			name:         "noPredictions",
			responseBody: `{"predictions": []}`,
			statusCode:   http.StatusOK,
			wantErr:      true,
			wantErrIs:    imagegen.ErrNoImage,
		},
		{
			name:         "billingRequired",
			responseBody: `{"error": {"code": 400, "message": "Imagen API is only accessible to billed users at this time.", "status": "FAILED_PRECONDITION"}}`,
			statusCode:   http.StatusBadRequest,
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			client, err := NewClient(context.Background(), "test-api-key", Options{BaseURL: server.URL})
			if err != nil {
				t.Fatalf("NewClient() error: %v", err)
			}

			got, err := client.GenerateImage(context.Background(), "Cinematic wide shot of a lighthouse")

			if tt.wantErr {
				if err == nil {
					t.Fatal("GenerateImage() expected error, got nil")
				}
				if tt.wantErrIs != nil && !errors.Is(err, tt.wantErrIs) {
					t.Errorf("GenerateImage() error = %v, want %v", err, tt.wantErrIs)
				}
				return
			}

			if err != nil {
				t.Fatalf("GenerateImage() unexpected error: %v", err)
			}
			if !bytes.Equal(got.Data, tt.wantData) {
				t.Errorf("GenerateImage() data = %v, want %v", got.Data, tt.wantData)
			}
			if got.MIMEType != tt.wantMIME {
				t.Errorf("GenerateImage() MIMEType = %q, want %q", got.MIMEType, tt.wantMIME)
			}
		})
	}
}

func TestGenerateImageRequest(t *testing.T) {
	var path string
	var body struct {
		Instances []struct {
			Prompt string `json:"prompt"`
		} `json:"instances"`
		Parameters struct {
			SampleCount int `json:"sampleCount"`
		} `json:"parameters"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predictions": [{"bytesBase64Encoded": "` + base64.StdEncoding.EncodeToString(pngBytes) + `"}]}`))
	}))
	defer server.Close()

	client, err := NewClient(context.Background(), "test-api-key", Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	prompt := "Cinematic close-up of an hourglass, in a dusty attic, 8k"
	got, err := client.GenerateImage(context.Background(), prompt)
	if err != nil {
		t.Fatalf("GenerateImage() unexpected error: %v", err)
	}

	if !strings.HasSuffix(path, "/models/imagen-3.0-generate-001:predict") {
		t.Errorf("path = %q, want predict on the default model", path)
	}
	if len(body.Instances) != 1 || body.Instances[0].Prompt != prompt {
		t.Errorf("instances = %+v, want the prompt unchanged", body.Instances)
	}
	if body.Parameters.SampleCount != 1 {
		t.Errorf("sampleCount = %d, want 1", body.Parameters.SampleCount)
	}
	if got.MIMEType != "image/png" {
		t.Errorf("MIMEType = %q, want image/png default", got.MIMEType)
	}
}
