package vouchers

import (
	"bytes"
	"regexp"
)

// MaxFileSize is the upload cap for voucher files
const MaxFileSize = 5 * 1024 * 1024

// file signatures accepted for vouchers; declared content types are not
// trusted, only magic bytes
var signatures = map[string][][]byte{
	"image/jpeg":      {{0xFF, 0xD8, 0xFF}},
	"image/png":       {{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	"application/pdf": {{0x25, 0x50, 0x44, 0x46}}, // %PDF
}

// SniffFileType checks the file's magic bytes and returns the detected
// content type. Only JPEG, PNG and PDF are accepted.
func SniffFileType(data []byte) (string, bool) {
	for contentType, sigs := range signatures {
		for _, sig := range sigs {
			if bytes.HasPrefix(data, sig) {
				return contentType, true
			}
		}
	}
	return "", false
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeFileName strips everything but safe filename characters
func SanitizeFileName(name string) string {
	return unsafeFileChars.ReplaceAllString(name, "_")
}
