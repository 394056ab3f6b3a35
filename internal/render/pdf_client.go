package render

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// PDFClient converts HTML through an external HTML-to-PDF HTTP service that
// accepts POST /pdf with a text/html body and answers with application/pdf.
type PDFClient struct {
	client *resty.Client
}

var _ Converter = (*PDFClient)(nil)

// NewPDFClient returns a client for the service at baseURL.
func NewPDFClient(baseURL string, timeout time.Duration) *PDFClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetTransport(otelhttp.NewTransport(http.DefaultTransport))

	return &PDFClient{client: client}
}

// Convert implements Converter.
func (c *PDFClient) Convert(ctx context.Context, html []byte) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/html; charset=utf-8").
		SetHeader("Accept", "application/pdf").
		SetBody(html).
		Post("/pdf")
	if err != nil {
		return nil, fmt.Errorf("pdf service request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrConversionFailed, resp.StatusCode())
	}
	if len(resp.Body()) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrConversionFailed)
	}
	return resp.Body(), nil
}
