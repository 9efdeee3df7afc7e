package llm

import (
	"encoding/base64"
	"net/http"
)

// ImageDataURL encodes a rendered page as a data URL. An empty mime type is
// sniffed from the bytes.
func ImageDataURL(image []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = http.DetectContentType(image)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
}
