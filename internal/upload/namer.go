package upload

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeName strips every character outside letters/digits/./_/- from the
// original name. A name left empty after stripping becomes "file".
func sanitizeName(name string) string {
	s := unsafeChars.ReplaceAllString(name, "")
	if s == "" {
		s = "file"
	}
	return s
}

// storageName prefixes a uniqueness discriminator to the sanitized original
// name, so two uploads sharing an original name never collide on disk.
func storageName(original string) string {
	return fmt.Sprintf("%d-%s_%s", time.Now().UnixMilli(), uuid.NewString()[:8], sanitizeName(original))
}
