package upload

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrTooManyFiles    = errors.New("too many files in one upload")
	ErrNoAcceptedFiles = errors.New("no accepted files in upload")
	ErrSizeLimit       = errors.New("file exceeds the size limit")
)

// UnsupportedTypeError reports the offending declared type and file name.
type UnsupportedTypeError struct {
	Name      string
	MediaType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported attachment type %q for %q", e.MediaType, e.Name)
}

// Declared media types accepted verbatim.
var allowedExact = map[string]bool{
	"application/pdf": true,
	"text/plain":      true,

	"application/zip":              true,
	"application/x-zip-compressed": true,
	"application/x-rar-compressed": true,
	"application/vnd.rar":          true,

	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-powerpoint":                                     true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
}

var allowedPrefixes = []string{"image/"}

// Browsers often declare office documents with a generic type; for those the
// file extension decides instead.
var genericTypes = map[string]bool{
	"application/octet-stream": true,
	"binary/octet-stream":      true,
}

var officeExt = map[string]bool{
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
	".ppt":  true,
	".pptx": true,
}

// Allowed reports whether a file with the declared media type and original
// name passes the whitelist, including the generic-type extension fallback.
func Allowed(mediaType, name string) bool {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if allowedExact[mt] {
		return true
	}
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(mt, p) {
			return true
		}
	}
	if genericTypes[mt] {
		return officeExt[strings.ToLower(filepath.Ext(name))]
	}
	return false
}
