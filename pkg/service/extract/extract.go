package extract

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/contech-ims/binsight/pkg/domain/model"
	"github.com/contech-ims/binsight/pkg/utils/logging"
	"github.com/ledongthuc/pdf"
	"github.com/m-mizutani/goerr/v2"
)

// Service downloads CO PDF files and extracts their plain text. Failed
// downloads or unreadable PDFs yield the extraction-failure sentinel
// rather than an error, so a bad document never aborts a whole run.
type Service struct {
	httpClient *http.Client
}

type Option func(*Service)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *Service) {
		s.httpClient = httpClient
	}
}

func New(opts ...Option) *Service {
	s := &Service{
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExtractFromURL downloads the PDF at fileLink and returns its text, or
// the sentinel when the document cannot be read.
func (s *Service) ExtractFromURL(ctx context.Context, fileLink string) string {
	logger := logging.From(ctx)

	data, err := s.download(ctx, fileLink)
	if err != nil {
		logger.Warn("Failed to download PDF", slog.String("link", fileLink), slog.Any("error", err))
		return model.ExtractionFailedSentinel
	}

	text, err := ExtractText(data)
	if err != nil {
		logger.Warn("Failed to extract PDF text", slog.String("link", fileLink), slog.Any("error", err))
		return model.ExtractionFailedSentinel
	}
	return text
}

func (s *Service) download(ctx context.Context, fileLink string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileLink, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build download request", goerr.V("link", fileLink))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to download PDF", goerr.V("link", fileLink))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("unexpected status downloading PDF",
			goerr.V("link", fileLink),
			goerr.V("status", resp.StatusCode))
	}

	return io.ReadAll(resp.Body)
}

// ExtractText parses PDF bytes and concatenates the plain text of every
// page. Pages that fail to parse are skipped; a document with no
// extractable text at all is an error.
func ExtractText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", goerr.Wrap(err, "failed to open PDF")
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	result := strings.TrimSpace(sb.String())
	if result == "" {
		return "", goerr.New("no extractable text in PDF")
	}
	return result, nil
}
