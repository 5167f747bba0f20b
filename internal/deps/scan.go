package deps

import (
	"encoding/json"
	"regexp"
)

// hexID matches a bare 64-hex-char txid optionally suffixed with an index,
// used both standalone and inside a /content/ path.
const hexIDPattern = `[0-9a-fA-F]{64}(?:i[0-9]+)?`

var (
	contentPathRef = regexp.MustCompile(`/content/(` + hexIDPattern + `)`)
	bareRef        = regexp.MustCompile(`\b([0-9a-fA-F]{64}i[0-9]+)\b`)
	modelViewerSrc = regexp.MustCompile(`(?i)<model-viewer\b[^>]*\bsrc\s*=\s*"([^"]+)"`)
)

// normalizeRef appends the implicit i0 index to a reference with no
// explicit index suffix.
func normalizeRef(ref string) string {
	for i := 0; i < len(ref); i++ {
		if ref[i] == 'i' {
			return ref
		}
	}
	return ref + "i0"
}

// scanGenericText finds /content/<id> and bare <txid>iN references in a
// text-like payload and returns their normalized (always-suffixed) ids,
// deduplicated.
func scanGenericText(text string) []string {
	seen := map[string]bool{}
	var out []string

	add := func(id string) {
		id = normalizeRef(id)
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	for _, m := range contentPathRef.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range bareRef.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}

	return out
}

// scanModelViewerSrcs finds <model-viewer src="..."> references in an
// HTML/SVG payload and returns the raw src attribute values that look like
// inscription references.
func scanModelViewerSrcs(text string) []string {
	var out []string
	for _, m := range modelViewerSrc.FindAllStringSubmatch(text, -1) {
		src := m[1]
		if id := extractID(src); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// extractID pulls an inscription reference out of a URL-ish string such as
// "/content/<id>" or a bare "<txid>iN".
func extractID(s string) string {
	if m := contentPathRef.FindStringSubmatch(s); m != nil {
		return normalizeRef(m[1])
	}
	if m := bareRef.FindStringSubmatch(s); m != nil {
		return normalizeRef(m[1])
	}
	return ""
}

// gltfDoc is the minimal shape needed to strictly scan a glTF-JSON asset
// for buffer/image URIs without false-positives from hex-looking asset
// names elsewhere in the document.
type gltfDoc struct {
	Buffers []struct {
		URI string `json:"uri"`
	} `json:"buffers"`
	Images []struct {
		URI string `json:"uri"`
	} `json:"images"`
}

// scanGltfJSON parses data as glTF-JSON and extracts inscription
// references from buffers[].uri and images[].uri only.
func scanGltfJSON(data []byte) ([]string, error) {
	var doc gltfDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var out []string
	add := func(uri string) {
		id := extractID(uri)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}

	for _, b := range doc.Buffers {
		add(b.URI)
	}
	for _, img := range doc.Images {
		add(img.URI)
	}

	return out, nil
}
