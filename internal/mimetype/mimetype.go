// Package mimetype normalizes declared media types and sniffs a byte
// prefix when the declared type is unreliable ("weak").
package mimetype

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Kind is a closed tagged set of media classifications used for decisions
// throughout the decoder. The declared mime string itself is kept
// separately (for example in the content store's Entry.MimeType).
type Kind int

const (
	KindOctetStream Kind = iota
	KindText
	KindHTML
	KindSVG
	KindJavascript
	KindJSON
	KindGltfJSON
	KindPNG
	KindJPEG
	KindGIF
	KindWebP
	KindGLB
)

// Default is the media type used when a declared type is absent or
// unparseable.
const Default = "application/octet-stream"

// Normalize lowercases a declared mime type, strips any ";charset=..."
// style parameters, and falls back to Default when empty.
func Normalize(mime string) string {
	mime = strings.TrimSpace(mime)
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = mime[:idx]
	}
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "" {
		return Default
	}
	return mime
}

// Classify maps a normalized mime type to its closed Kind.
func Classify(normalized string) Kind {
	switch normalized {
	case "text/html":
		return KindHTML
	case "image/svg+xml":
		return KindSVG
	case "application/javascript", "application/x-javascript", "text/javascript":
		return KindJavascript
	case "application/json":
		return KindJSON
	case "model/gltf+json":
		return KindGltfJSON
	case "image/png":
		return KindPNG
	case "image/jpeg":
		return KindJPEG
	case "image/gif":
		return KindGIF
	case "image/webp":
		return KindWebP
	case "model/gltf-binary":
		return KindGLB
	}
	if strings.HasPrefix(normalized, "text/") {
		return KindText
	}
	return KindOctetStream
}

// IsTextLike reports whether the dependency resolver should scan payloads
// of this kind for inscription references.
func IsTextLike(k Kind) bool {
	switch k {
	case KindText, KindHTML, KindSVG, KindJavascript, KindJSON, KindGltfJSON:
		return true
	default:
		return false
	}
}

// Sniffed is the result of inspecting a byte prefix.
type Sniffed struct {
	MimeType string
	Ext      string
}

// sniffWindow bounds how much of the payload Sniff inspects.
const sniffWindow = 256

var (
	pngMagic  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	gltfMagic = []byte("glTF")
)

// Sniff inspects at most the first sniffWindow bytes of data and returns a
// best-guess mime type and extension. The zero value is returned when
// nothing recognizable is found.
func Sniff(data []byte) (Sniffed, bool) {
	if len(data) > sniffWindow {
		data = data[:sniffWindow]
	}

	switch {
	case bytes.HasPrefix(data, pngMagic):
		return Sniffed{"image/png", "png"}, true
	case bytes.HasPrefix(data, jpegMagic):
		return Sniffed{"image/jpeg", "jpg"}, true
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return Sniffed{"image/gif", "gif"}, true
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return Sniffed{"image/webp", "webp"}, true
	case bytes.HasPrefix(data, gltfMagic):
		return Sniffed{"model/gltf-binary", "glb"}, true
	}

	if sniffed, ok := sniffGltfJSON(data); ok {
		return sniffed, true
	}

	return Sniffed{}, false
}

// sniffGltfJSON reports whether data is a valid JSON document whose root
// object carries an "asset": {"version": "..."} member, the signature of a
// glTF-JSON (as opposed to glTF-binary) asset.
func sniffGltfJSON(data []byte) (Sniffed, bool) {
	var doc struct {
		Asset *struct {
			Version string `json:"version"`
		} `json:"asset"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Sniffed{}, false
	}
	if doc.Asset == nil || doc.Asset.Version == "" {
		return Sniffed{}, false
	}
	return Sniffed{"model/gltf+json", "gltf"}, true
}

// IsWeak reports whether the declared classification (mime, ext) is
// untrustworthy and should be replaced with a sniffed classification when
// possible.
func IsWeak(normalizedMime, ext string) bool {
	return ext == "" || ext == "bin" || normalizedMime == Default
}
