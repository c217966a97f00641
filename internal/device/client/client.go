// Package client implements a device-side client for the gateway API. It signs every
// request body with the derived authentication key and encrypts ingest payloads with
// the derived encryption key, exactly as a field device does.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	cryptoDomain "github.com/allisson/envoy-gateway/internal/crypto/domain"
	cryptoService "github.com/allisson/envoy-gateway/internal/crypto/service"
	deviceDomain "github.com/allisson/envoy-gateway/internal/device/domain"
	deviceHTTP "github.com/allisson/envoy-gateway/internal/device/http"
	"github.com/allisson/envoy-gateway/internal/device/http/dto"
	"github.com/allisson/envoy-gateway/internal/httputil"
)

const (
	defaultRetryMax     = 2
	defaultRetryWaitMin = 200 * time.Millisecond
	defaultRetryWaitMax = 2 * time.Second
	defaultTimeout      = 30 * time.Second
)

// HealthResponse is the body of the gateway health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// APIError is returned for any non-200 gateway response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway returned %d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("gateway returned %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Option configures a Client.
type Option func(*Client)

// WithRetryMax sets how many times a request is retried on connection errors, 429 and
// 5xx responses. Zero disables retries.
func WithRetryMax(n int) Option {
	return func(c *Client) {
		c.http.RetryMax = n
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http.HTTPClient = httpClient
	}
}

// WithLogger routes retry logging to logger. A nil logger disables retry logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger == nil {
			c.http.Logger = nil
			return
		}
		c.http.Logger = logger
	}
}

// Client talks to a gateway on behalf of one device.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	signer  cryptoService.Signer
	cipher  cryptoService.PayloadCipher
}

// New creates a Client for the gateway at baseURL using keys derived from the shared
// master secret.
func New(baseURL string, keys *cryptoDomain.KeySet, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid gateway url %q: %w", baseURL, err)
	}

	cipher, err := cryptoService.NewFernetCipher(keys.EncryptionKey(), 0)
	if err != nil {
		return nil, err
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = defaultRetryMax
	httpClient.RetryWaitMin = defaultRetryWaitMin
	httpClient.RetryWaitMax = defaultRetryWaitMax
	httpClient.HTTPClient.Timeout = defaultTimeout
	httpClient.Logger = nil
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		signer:  cryptoService.NewSigner(keys.AuthKey()),
		cipher:  cipher,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Health calls the unauthenticated health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return nil, err
	}

	var response HealthResponse
	if err := c.do(req, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Boot announces a device boot.
func (c *Client) Boot(ctx context.Context, deviceID, configVersion string) (*dto.BootResponse, error) {
	body, err := json.Marshal(dto.BootRequest{DeviceID: deviceID, ConfigVersion: dto.ConfigVersion(configVersion)})
	if err != nil {
		return nil, err
	}

	var response dto.BootResponse
	if err := c.postSigned(ctx, "/boot", body, "application/json", &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Directive polls for the next directive.
func (c *Client) Directive(ctx context.Context) (*dto.DirectiveResponse, error) {
	var response dto.DirectiveResponse
	if err := c.postSigned(ctx, "/directive", []byte("{}"), "application/json", &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Ingest encrypts plaintext and uploads it under filename.
func (c *Client) Ingest(ctx context.Context, filename string, plaintext []byte) (*dto.IngestResponse, error) {
	token, err := c.cipher.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}

	path := "/ingest"
	if filename != "" {
		path += "?" + url.Values{"filename": {filename}}.Encode()
	}

	var response dto.IngestResponse
	if err := c.postSigned(ctx, path, token, deviceDomain.DefaultContentType, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *Client) postSigned(ctx context.Context, path string, body []byte, contentType string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(deviceHTTP.SignatureHeader, c.signer.Sign(body))

	return c.do(req, out)
}

func (c *Client) do(req *retryablehttp.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errorResponse httputil.ErrorResponse
		if json.Unmarshal(payload, &errorResponse) == nil {
			apiErr.Code = errorResponse.Error
			apiErr.Message = errorResponse.Message
		}
		return apiErr
	}

	if err := json.NewDecoder(bytes.NewReader(payload)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
