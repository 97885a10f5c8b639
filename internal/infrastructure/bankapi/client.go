package bankapi

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"bankledger/internal/domain/bank"
)

const (
	defaultTimeout = 60 * time.Second
	maxBodyBytes   = 32 << 20
	soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
)

var tracer = otel.Tracer("bankledger/bankapi")

// Options configure the transport shared by every adapter.
type Options struct {
	// Timeout bounds a single HTTP exchange. The caller's context may be shorter.
	Timeout time.Duration
	// MinInterval is the minimum spacing between two requests to the same bank.
	MinInterval time.Duration
	// Transport overrides the base round tripper, mainly for tests.
	Transport http.RoundTripper
}

// soapClient posts SOAP 1.1 envelopes to one bank endpoint.
type soapClient struct {
	httpClient *http.Client
	endpoint   string
	variant    bank.Variant
	limiter    *rate.Limiter
}

func newSOAPClient(variant bank.Variant, endpoint string, opts Options) *soapClient {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	return &soapClient{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(base),
		},
		endpoint: endpoint,
		variant:  variant,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

type requestEnvelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	SoapNS  string   `xml:"xmlns:soap,attr"`
	Body    struct {
		Payload any
	} `xml:"soap:Body"`
}

// call sends payload as the body of a SOAP envelope and returns the raw
// response body. Every transport-level failure is a *bank.NetworkError.
func (c *soapClient) call(ctx context.Context, action string, payload any) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "bank.fetch", trace.WithAttributes(
		attribute.String("bank.variant", c.variant.String()),
		attribute.String("soap.action", action),
	))
	defer span.End()

	body, err := c.do(ctx, action, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.size", len(body)))
	return body, nil
}

func (c *soapClient) do(ctx context.Context, action string, payload any) ([]byte, error) {
	env := requestEnvelope{SoapNS: soapEnvelopeNS}
	env.Body.Payload = payload
	reqBody, err := xml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", action, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &bank.NetworkError{Variant: c.variant, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(append([]byte(xml.Header), reqBody...)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", action)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &bank.NetworkError{Variant: c.variant, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &bank.NetworkError{Variant: c.variant, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	// SOAP faults travel as HTTP 500 with a well-formed body; let the parser
	// classify those.
	if resp.StatusCode == http.StatusInternalServerError && bytes.Contains(body, []byte("Fault>")) {
		return body, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &bank.NetworkError{Variant: c.variant, StatusCode: resp.StatusCode}
	}
	return body, nil
}
