package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/gtuazon18/rxn3d-core/pkg/logger"
)

const defaultFetchTimeout = 10 * time.Second

// HTTPSource fetches catalog snapshots from the lab catalog service. The
// transient-failure retry policy lives in the underlying retryable client;
// FetchCatalog only reports terminal outcomes.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

var _ DataSource = (*HTTPSource)(nil)

// HTTPSourceOpt configures an HTTPSource.
type HTTPSourceOpt func(*HTTPSource)

// WithHTTPClient overrides the default retryable client, mainly for tests.
func WithHTTPClient(c *http.Client) HTTPSourceOpt {
	return func(s *HTTPSource) {
		s.httpClient = c
	}
}

// WithSourceLogger sets the logger for the source.
func WithSourceLogger(l logger.Logger) HTTPSourceOpt {
	return func(s *HTTPSource) {
		s.logger = l
	}
}

// NewHTTPSource builds a source rooted at baseURL, e.g.
// "https://catalog.lab.internal".
func NewHTTPSource(baseURL string, opts ...HTTPSourceOpt) *HTTPSource {
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = 3

	s := &HTTPSource{
		baseURL:    baseURL,
		httpClient: client.StandardClient(),
		logger:     logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchCatalog implements DataSource. It calls
// GET {base}/subjects/{id}/catalog and parses the payload at the ingestion
// boundary.
func (s *HTTPSource) FetchCatalog(ctx context.Context, subjectID int64) ([]Brand, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultFetchTimeout)
	defer cancel()

	u, err := url.JoinPath(s.baseURL, "subjects", strconv.FormatInt(subjectID, 10), "catalog")
	if err != nil {
		return nil, fmt.Errorf("building catalog url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building catalog request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading catalog response: %w", err)
	}

	return ParseBrands(body, s.logger)
}
