package mimetype

import "strings"

const Default = "application/octet-stream"

var byExtension = map[string]string{
	"avif":     "image/avif",
	"bin":      "application/octet-stream",
	"css":      "text/css; charset=utf-8",
	"geojson":  "application/geo+json; charset=utf-8",
	"htm":      "text/html; charset=utf-8",
	"html":     "text/html; charset=utf-8",
	"jpeg":     "image/jpeg",
	"jpg":      "image/jpeg",
	"js":       "text/javascript; charset=utf-8",
	"json":     "application/json; charset=utf-8",
	"pbf":      "application/x-protobuf",
	"png":      "image/png",
	"svg":      "image/svg+xml; charset=utf-8",
	"topojson": "application/topo+json; charset=utf-8",
	"webp":     "image/webp",
}

// ByFilename guesses the MIME type from the part of name after the last dot.
// The second value reports whether the extension was known; unknown ones map
// to Default.
func ByFilename(name string) (string, bool) {
	ext := strings.ToLower(name[strings.LastIndex(name, ".")+1:])
	if mime, ok := byExtension[ext]; ok {
		return mime, true
	}
	return Default, false
}

// ByFormat maps a tile format name such as "pbf" or "png".
func ByFormat(format string) string {
	mime, _ := ByFilename(format)
	return mime
}
