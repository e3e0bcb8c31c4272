package tiles

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jaennil/tileserve/pkg/logger"
	"github.com/jaennil/tileserve/pkg/metrics"
)

const userAgent = "tileserve/1.0 (+https://github.com/jaennil/tileserve)"

// UpstreamSource fetches tiles from an XYZ tile server. The URL template uses
// {z}, {x} and {y} placeholders.
type UpstreamSource struct {
	template   string
	header     Header
	httpClient *http.Client
	logger     logger.Logger
}

var _ Source = (*UpstreamSource)(nil)

func NewUpstreamSource(template string, header Header, timeout time.Duration, l logger.Logger) *UpstreamSource {
	// tiles must arrive in the encoding the header declares, so the transport
	// may not negotiate gzip on its own and decode it behind our back
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = true

	return &UpstreamSource{
		template: template,
		header:   header,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: l,
	}
}

func (s *UpstreamSource) Header(ctx context.Context) (Header, error) {
	return s.header, nil
}

func (s *UpstreamSource) Metadata(ctx context.Context) (string, error) {
	return "{}", nil
}

func (s *UpstreamSource) Tile(ctx context.Context, z, x, y int) ([]byte, bool, error) {
	upstreamURL := strings.NewReplacer(
		"{z}", strconv.Itoa(z),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
	).Replace(s.template)

	s.logger.Debug("fetching from upstream", "url", upstreamURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, upstreamURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	// required by the OpenStreetMap tile usage policy
	req.Header.Set("User-Agent", userAgent)

	metrics.UpstreamRequests.Inc()

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("failed to fetch from upstream", "url", upstreamURL, "error", err)
		return nil, false, fmt.Errorf("failed to fetch tile from upstream: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		return nil, false, nil
	default:
		s.logger.Error("upstream returned non-200", "url", upstreamURL, "status", resp.StatusCode)
		return nil, false, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	tileData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read tile data: %w", err)
	}

	s.logger.Debug("fetched tile from upstream", "url", upstreamURL, "size", len(tileData))

	return tileData, true, nil
}

func (s *UpstreamSource) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}
