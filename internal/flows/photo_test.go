package flows

import (
	"testing"

	"mcp-nutrisnap/internal/models"
)

func TestCheckPhotoReferenceAccepts(t *testing.T) {
	for _, ref := range []string{
		"data:image/png;base64,AAAA",
		"data:image/jpeg;base64,/9j/4AAQ",
		"https://example.com/plate.jpg",
		"http://localhost:8080/p.png?x=1",
	} {
		if err := CheckPhotoReference(models.PhotoReference(ref)); err != nil {
			t.Fatalf("%q: unexpected error %v", ref, err)
		}
	}
}

func TestParseDataURI(t *testing.T) {
	got, err := ParseDataURI("data:Image/PNG;base64,AAAA")
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if got.MimeType != "image/png" || got.Data != "AAAA" {
		t.Fatalf("unexpected result %#v", got)
	}

	if _, err := ParseDataURI("https://example.com/a.png"); err == nil {
		t.Fatal("expected error for non data URI")
	}
}
