// internal/flows/photo.go
package flows

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"mcp-nutrisnap/internal/models"
)

// DataURI is a decoded "data:<mime>;base64,<payload>" photo reference.
type DataURI struct {
	MimeType string
	Data     string
}

// ParseDataURI splits a base64 data URI. The payload is returned still
// encoded.
func ParseDataURI(ref models.PhotoReference) (DataURI, error) {
	s := string(ref)
	if !strings.HasPrefix(s, "data:") {
		return DataURI{}, errors.New("not a data URI")
	}
	header, data, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return DataURI{}, errors.New("data URI has no payload separator")
	}
	mimeType, encoding, ok := strings.Cut(header, ";")
	if !ok || encoding != "base64" {
		return DataURI{}, errors.New("data URI must be base64 encoded")
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if !strings.HasPrefix(mimeType, "image/") {
		return DataURI{}, fmt.Errorf("data URI mime type %q is not an image", mimeType)
	}
	if data == "" {
		return DataURI{}, errors.New("data URI payload is empty")
	}
	if _, err := base64.StdEncoding.DecodeString(data); err != nil {
		return DataURI{}, fmt.Errorf("data URI payload is not valid base64: %w", err)
	}
	return DataURI{MimeType: mimeType, Data: data}, nil
}

// IsDataURI reports whether ref uses the data: scheme.
func IsDataURI(ref models.PhotoReference) bool {
	return strings.HasPrefix(string(ref), "data:")
}

// CheckPhotoReference reports why ref cannot be resolved by a model client,
// or nil when it can.
func CheckPhotoReference(ref models.PhotoReference) error {
	s := string(ref)
	if strings.TrimSpace(s) == "" {
		return errors.New("photo reference is empty")
	}
	if strings.IndexFunc(s, unicode.IsControl) != -1 {
		return errors.New("photo reference contains control characters")
	}

	if IsDataURI(ref) {
		_, err := ParseDataURI(ref)
		return err
	}

	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("photo reference is not a URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("photo reference scheme %q is not supported", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("photo reference URL has no host")
	}
	return nil
}
