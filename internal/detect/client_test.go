package detect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetectFaces_ParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			t.Errorf("expected path /embed/face, got %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("expected 'file' form field: %v", err)
		}

		resp := faceResponse{
			FacesCount: 1,
			Faces: []Detection{
				{
					FaceIndex: 0,
					Dim:       4,
					Embedding: []float32{1, 0, 0, 0},
					BBox:      []float64{10, 20, 110, 140},
					DetScore:  0.93,
				},
			},
			Model: "buffalo_l",
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	faces, err := client.DetectFaces(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0x00, 0x00, 0x00, 0x00, 0x00})
	if err != nil {
		t.Fatalf("DetectFaces failed: %v", err)
	}

	if len(faces) != 1 {
		t.Fatalf("expected 1 face, got %d", len(faces))
	}

	if faces[0].DetScore != 0.93 {
		t.Errorf("expected det score 0.93, got %v", faces[0].DetScore)
	}

	if len(faces[0].BBox) != 4 || faces[0].BBox[2] != 110 {
		t.Errorf("unexpected bbox %v", faces[0].BBox)
	}
}

func TestDetectFaces_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.DetectFaces(context.Background(), []byte("not an image"))
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestCheck_Available(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("expected path /health, got %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(healthResponse{Status: "ok", Model: "buffalo_l"})
	}))
	defer server.Close()

	cap := NewClient(server.URL).Check(context.Background())
	if !cap.Available {
		t.Errorf("expected capability available, got reason '%s'", cap.Reason)
	}
	if cap.Model != "buffalo_l" {
		t.Errorf("expected model 'buffalo_l', got '%s'", cap.Model)
	}
}

func TestCheck_Unreachable(t *testing.T) {
	// Point at a closed server.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	cap := NewClient(url).Check(context.Background())
	if cap.Available {
		t.Error("expected capability unavailable for closed server")
	}
	if cap.Reason == "" {
		t.Error("expected a reason for unavailability")
	}
}

func TestProposeRegions_ParsesBoxes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/propose/face" {
			t.Errorf("expected path /propose/face, got %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(proposalResponse{
			BoxesCount: 2,
			Boxes:      [][]float64{{0, 0, 50, 50}, {100, 100, 180, 200}},
		})
	}))
	defer server.Close()

	boxes, err := NewProposalClient(server.URL).ProposeRegions(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("ProposeRegions failed: %v", err)
	}

	if len(boxes) != 2 {
		t.Fatalf("expected 2 boxes, got %d", len(boxes))
	}

	if boxes[1][3] != 200 {
		t.Errorf("unexpected second box %v", boxes[1])
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0, 0}, "image/gif"},
		{"bmp", []byte{0x42, 0x4D, 0, 0, 0, 0, 0, 0}, "image/bmp"},
		{"unknown", []byte{0, 1, 2, 3, 4, 5, 6, 7}, "application/octet-stream"},
		{"too short", []byte{0xFF}, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMIMEType(tt.data); got != tt.expected {
				t.Errorf("detectMIMEType = %s, want %s", got, tt.expected)
			}
		})
	}
}
