package pipeline

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/menu-cli/internal/resilience"
)

// maxPDFBytes bounds a downloaded menu PDF.
const maxPDFBytes = 32 << 20

// pdfText downloads a PDF menu and returns its text.
func (p *Pipeline) pdfText(ctx context.Context, pdfURL string) (string, error) {
	cfg := p.retry
	cfg.OnRetry = resilience.RetryLogger("pdf", "download")

	data, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		return p.download(ctx, pdfURL)
	})
	if err != nil {
		return "", err
	}

	text, err := p.deps.PDF.ExtractPDF(ctx, data)
	if err != nil {
		return "", eris.Wrapf(err, "pipeline: extract pdf %s", pdfURL)
	}
	if strings.TrimSpace(text) == "" {
		return "", eris.Errorf("pipeline: pdf %s has no text layer", pdfURL)
	}
	return text, nil
}

func (p *Pipeline) download(ctx context.Context, pdfURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: build pdf request")
	}
	resp, err := p.deps.HTTP.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "pipeline: download pdf"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.WrapHTTPStatus(
			eris.Errorf("pipeline: pdf %s returned %d", pdfURL, resp.StatusCode),
			resp.StatusCode, 0)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFBytes))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read pdf")
	}
	return data, nil
}
