package mimetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByFilename(t *testing.T) {
	cases := []struct {
		name  string
		mime  string
		known bool
	}{
		{"index.html", "text/html; charset=utf-8", true},
		{"/assets/sprites/sprites@2x.PNG", "image/png", true},
		{"style.min.css", "text/css; charset=utf-8", true},
		{"tiles.json", "application/json; charset=utf-8", true},
		{"README", Default, false},
		{"archive.tar.zst", Default, false},
	}
	for _, tc := range cases {
		mime, known := ByFilename(tc.name)
		assert.Equal(t, tc.mime, mime, tc.name)
		assert.Equal(t, tc.known, known, tc.name)
	}
}

func TestByFormat(t *testing.T) {
	assert.Equal(t, "application/x-protobuf", ByFormat("pbf"))
	assert.Equal(t, "image/webp", ByFormat("webp"))
	assert.Equal(t, Default, ByFormat("mvt"))
}
