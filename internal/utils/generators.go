package utils

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// GenerateImageFilename returns a collision-resistant blob filename keeping
// the original extension, falling back to one derived from the content type.
func GenerateImageFilename(originalName, contentType string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = extByContentType[contentType]
	}
	return uuid.New().String() + ext
}
