package media

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var allowedMimeTypes = []string{"image/jpeg", "image/png", "image/webp"}

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// sniffMimeType detects the content type from the leading bytes of the upload.
func sniffMimeType(head []byte) (string, bool) {
	detected := mimetype.Detect(head)
	for _, allowed := range allowedMimeTypes {
		if detected.Is(allowed) {
			return allowed, true
		}
	}
	return detected.String(), false
}

func normalizedExtension(filename string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	_, ok := allowedExtensions[ext]
	return ext, ok
}
