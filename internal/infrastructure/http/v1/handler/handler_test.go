package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/tileserve/internal/compression"
	"github.com/jaennil/tileserve/internal/entity"
	"github.com/jaennil/tileserve/internal/repository/content"
	"github.com/jaennil/tileserve/internal/repository/tiles"
	"github.com/jaennil/tileserve/internal/style"
	"github.com/jaennil/tileserve/internal/usecase"
	"github.com/jaennil/tileserve/pkg/logger"
	"github.com/stretchr/testify/suite"
)

const defaultClientEncoding = "gzip, deflate, br"

type HandlerSuite struct {
	suite.Suite

	dir      string
	tile     []byte
	stored   []byte
	cache    *content.Cache
	tileUC   *usecase.TileUseCase
	optimal  bool
	diskRoot string
}

func TestRunHandlerSuite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.optimal = true
	s.diskRoot = ""

	s.tile = bytes.Repeat([]byte("vector tile payload "), 64)
	stored, err := compression.CompressBrotli(s.tile)
	s.Require().NoError(err)
	s.stored = stored

	root := filepath.Join(s.dir, "tiles")
	s.writeFile(filepath.Join(root, "8/55/67.pbf"), s.stored)
	// a directory where a tile file is expected fails the read
	s.Require().NoError(os.MkdirAll(filepath.Join(root, "5/5/5.pbf"), 0o755))

	header, err := tiles.NewHeader("pbf", "br")
	s.Require().NoError(err)
	src, err := tiles.NewFilesystemSource(root, header)
	s.Require().NoError(err)

	opts := style.Options{BaseURL: "http://localhost:8080/", TilesURL: "/tiles/{z}/{x}/{y}"}
	s.tileUC, err = usecase.NewTileUseCase(s.T().Context(), src, style.NewGuesser(), opts, false, logger.Nop())
	s.Require().NoError(err)

	css, err := compression.CompressGzip([]byte("body { margin: 0 }"))
	s.Require().NoError(err)

	s.cache = content.NewCache(logger.Nop())
	s.cache.Insert("/index.html", []byte("<html>cache</html>"), "text/html; charset=utf-8", entity.CompressionRaw)
	s.cache.Insert("/assets/style.css", css, "text/css; charset=utf-8", entity.CompressionGzip)
	s.cache.Insert("/assets/broken.js", []byte("not gzip"), "text/javascript; charset=utf-8", entity.CompressionGzip)
	s.cache.Insert("/tiles/1/2/3", []byte("shadowed"), "text/plain", entity.CompressionRaw)
	s.cache.Insert("/blob", []byte("blob"), "", entity.CompressionRaw)
}

func (s *HandlerSuite) writeFile(name string, data []byte) {
	s.Require().NoError(os.MkdirAll(filepath.Dir(name), 0o755))
	s.Require().NoError(os.WriteFile(name, data, 0o644))
}

func (s *HandlerSuite) router() *gin.Engine {
	var static *content.Dir
	if s.diskRoot != "" {
		var err error
		static, err = content.NewDir(s.diskRoot)
		s.Require().NoError(err)
	}

	h := NewHandler(s.tileUC, usecase.NewTranscodeUseCase(s.optimal, logger.Nop()), s.cache, static)

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.GET("/api/v1/healthz", h.Healthz)
	r.NoRoute(h.Serve)
	return r
}

func (s *HandlerSuite) do(method, target, acceptEncoding string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if acceptEncoding != "" {
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}
	w := httptest.NewRecorder()
	s.router().ServeHTTP(w, req)
	return w
}

// Tests
func (s *HandlerSuite) TestTile_DefaultClient_ServesStoredBrotli() {
	w := s.do(http.MethodGet, "/tiles/8/55/67", defaultClientEncoding)

	s.Equal(http.StatusOK, w.Code)
	s.Equal("br", w.Header().Get("Content-Encoding"))
	s.Equal("application/x-protobuf", w.Header().Get("Content-Type"))
	s.Equal("Accept-Encoding", w.Header().Get("Vary"))
	s.Equal(s.stored, w.Body.Bytes())
}

func (s *HandlerSuite) TestTile_GzipOnly_Recompresses() {
	w := s.do(http.MethodGet, "/tiles/8/55/67", "gzip")

	s.Equal(http.StatusOK, w.Code)
	s.Equal("gzip", w.Header().Get("Content-Encoding"))

	body, err := compression.DecompressGzip(w.Body.Bytes())
	s.Require().NoError(err)
	s.Equal(s.tile, body)
}

func (s *HandlerSuite) TestTile_NoAcceptEncoding_ServesRaw() {
	w := s.do(http.MethodGet, "/tiles/8/55/67", "")

	s.Equal(http.StatusOK, w.Code)
	s.Empty(w.Header().Get("Content-Encoding"))
	s.Equal(s.tile, w.Body.Bytes())
}

func (s *HandlerSuite) TestTile_TrailingSuffix() {
	w := s.do(http.MethodGet, "/tiles/8/55/67.pbf", "br")

	s.Equal(http.StatusOK, w.Code)
	s.Equal(s.stored, w.Body.Bytes())
}

func (s *HandlerSuite) TestTile_Missing() {
	w := s.do(http.MethodGet, "/tiles/0/0/0", defaultClientEncoding)

	s.Equal(http.StatusNotFound, w.Code)
	s.Equal(textMIME, w.Header().Get("Content-Type"))
	s.Equal("tile not found: /tiles/0/0/0", w.Body.String())
}

func (s *HandlerSuite) TestTile_WinsOverCachePath() {
	w := s.do(http.MethodGet, "/tiles/1/2/3", "")

	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("tile not found: /tiles/1/2/3", w.Body.String())
}

func (s *HandlerSuite) TestTile_NonCanonicalPathWinsOverCachePath() {
	for _, target := range []string{"//tiles/1/2/3", "/tiles/1/2/../2/3", "/x/../tiles/1/2/3"} {
		w := s.do(http.MethodGet, target, "")

		s.Equal(http.StatusNotFound, w.Code, target)
		s.Equal("tile not found: /tiles/1/2/3", w.Body.String(), target)
	}
}

func (s *HandlerSuite) TestTile_NonCanonicalPathServesTile() {
	for _, target := range []string{"//tiles/8/55/67", "/a/../tiles/8/55/67"} {
		w := s.do(http.MethodGet, target, defaultClientEncoding)

		s.Equal(http.StatusOK, w.Code, target)
		s.Equal("br", w.Header().Get("Content-Encoding"), target)
		s.Equal(s.stored, w.Body.Bytes(), target)
	}
}

func (s *HandlerSuite) TestTile_CoordinateOverflow() {
	w := s.do(http.MethodGet, "/tiles/99999999999999999999/0/0", "")

	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("tile not found: /tiles/99999999999999999999/0/0", w.Body.String())
}

func (s *HandlerSuite) TestTile_SourceError() {
	w := s.do(http.MethodGet, "/tiles/5/5/5", "")

	s.Equal(http.StatusInternalServerError, w.Code)
	s.Equal(textMIME, w.Header().Get("Content-Type"))
	s.Contains(w.Body.String(), "failed to get tile 5/5/5")
}

func (s *HandlerSuite) TestMethodNotAllowed() {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodHead} {
		w := s.do(method, "/index.html", "")

		s.Equal(http.StatusMethodNotAllowed, w.Code, method)
		if method != http.MethodHead {
			s.Equal("Method not allowed", w.Body.String())
		}
	}
}

func (s *HandlerSuite) TestMetadata() {
	w := s.do(http.MethodGet, "/tiles/tiles.json", "")

	s.Equal(http.StatusOK, w.Code)
	s.Equal("application/json; charset=utf-8", w.Header().Get("Content-Type"))
	s.JSONEq("{}", w.Body.String())
}

func (s *HandlerSuite) TestMetadata_Compressed() {
	w := s.do(http.MethodGet, "/tiles/tiles.json", "br")

	s.Equal(http.StatusOK, w.Code)
	s.Equal("br", w.Header().Get("Content-Encoding"))

	body, err := compression.DecompressBrotli(w.Body.Bytes())
	s.Require().NoError(err)
	s.JSONEq("{}", string(body))
}

func (s *HandlerSuite) TestStyle() {
	w := s.do(http.MethodGet, "/tiles/style.json", "")

	s.Equal(http.StatusOK, w.Code)

	var doc map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &doc))
	s.EqualValues(8, doc["version"])
}

func (s *HandlerSuite) TestIndex() {
	w := s.do(http.MethodGet, "/tiles/index.json", "")

	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`["default"]`, w.Body.String())
}

func (s *HandlerSuite) TestCache_IndexAlias() {
	for _, target := range []string{"/", "/index.html"} {
		w := s.do(http.MethodGet, target, "")

		s.Equal(http.StatusOK, w.Code, target)
		s.Equal("text/html; charset=utf-8", w.Header().Get("Content-Type"))
		s.Equal("<html>cache</html>", w.Body.String())
	}
}

func (s *HandlerSuite) TestCache_DefaultMIME() {
	w := s.do(http.MethodGet, "/blob", "")

	s.Equal(http.StatusOK, w.Code)
	s.Equal("application/octet-stream", w.Header().Get("Content-Type"))
}

func (s *HandlerSuite) TestCache_StoredGzip() {
	w := s.do(http.MethodGet, "/assets/style.css", "gzip, br")
	s.Equal("gzip", w.Header().Get("Content-Encoding"))

	w = s.do(http.MethodGet, "/assets/style.css", "br")
	s.Equal("br", w.Header().Get("Content-Encoding"))

	w = s.do(http.MethodGet, "/assets/style.css", "")
	s.Empty(w.Header().Get("Content-Encoding"))
	s.Equal("body { margin: 0 }", w.Body.String())
}

func (s *HandlerSuite) TestCache_FastPolicy() {
	s.optimal = false

	w := s.do(http.MethodGet, "/assets/style.css", "br")
	s.Equal(http.StatusOK, w.Code)
	s.Empty(w.Header().Get("Content-Encoding"))
	s.Equal("body { margin: 0 }", w.Body.String())

	w = s.do(http.MethodGet, "/index.html", defaultClientEncoding)
	s.Empty(w.Header().Get("Content-Encoding"))
}

func (s *HandlerSuite) TestCache_CorruptContent() {
	w := s.do(http.MethodGet, "/assets/broken.js", "")

	s.Equal(http.StatusInternalServerError, w.Code)
	s.Contains(w.Body.String(), compression.ErrDecompression.Error())
}

func (s *HandlerSuite) TestNotFound() {
	w := s.do(http.MethodGet, "/missing.html", "")

	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("file not found: /missing.html", w.Body.String())
}

func (s *HandlerSuite) TestDisk_ServesBeforeCache() {
	s.diskRoot = filepath.Join(s.dir, "static")
	s.writeFile(filepath.Join(s.diskRoot, "index.html"), []byte("<html>disk</html>"))
	s.writeFile(filepath.Join(s.diskRoot, "docs/index.html"), []byte("docs"))

	w := s.do(http.MethodGet, "/index.html", "")
	s.Equal("<html>disk</html>", w.Body.String())

	w = s.do(http.MethodGet, "/docs/", "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal("docs", w.Body.String())

	w = s.do(http.MethodGet, "/assets/style.css", "gzip")
	s.Equal(http.StatusOK, w.Code)
	s.Equal("gzip", w.Header().Get("Content-Encoding"))
}

func (s *HandlerSuite) TestDisk_TraversalIsNotFound() {
	s.diskRoot = filepath.Join(s.dir, "static")
	s.writeFile(filepath.Join(s.diskRoot, "index.html"), []byte("<html>disk</html>"))
	s.writeFile(filepath.Join(s.dir, "secret.html"), []byte("secret"))

	w := s.do(http.MethodGet, "/../secret.html", "")

	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("file not found: /secret.html", w.Body.String())
}

func (s *HandlerSuite) TestHealthz() {
	w := s.do(http.MethodGet, "/api/v1/healthz", "")

	s.Equal(http.StatusOK, w.Code)
	s.Equal("OK", w.Body.String())
}
