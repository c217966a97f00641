package http

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	cryptoDomain "github.com/allisson/envoy-gateway/internal/crypto/domain"
	cryptoService "github.com/allisson/envoy-gateway/internal/crypto/service"
	apperrors "github.com/allisson/envoy-gateway/internal/errors"
	"github.com/allisson/envoy-gateway/internal/httputil"
)

// SignatureHeader carries hex(HMAC-SHA256(auth key, raw body)).
const SignatureHeader = "X-Anchor-Signature"

// SignatureMiddleware authenticates a request by its body signature.
//
// The body is read exactly once, limited to maxBodyBytes, and verified before any
// handler parses it. The verified bytes are cached in the gin context (GetRawBody)
// and Request.Body is replaced with a reader over the same bytes.
//
// Error handling:
//   - Body over maxBodyBytes → 413 Payload Too Large
//   - Missing X-Anchor-Signature header → 401 Unauthorized
//   - Signature mismatch → 403 Forbidden
func SignatureMiddleware(signer cryptoService.Signer, maxBodyBytes int64, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := readBody(c, maxBodyBytes)
		if err != nil {
			logger.Debug("signature check failed: unreadable body", slog.Any("error", err))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		signature := c.GetHeader(SignatureHeader)
		if signature == "" {
			logger.Debug("signature check failed: missing header")
			httputil.HandleErrorGin(c, cryptoDomain.ErrSignatureMissing, logger)
			c.Abort()
			return
		}

		if !signer.Verify(body, signature) {
			logger.Debug("signature check failed: mismatch",
				slog.String("path", c.Request.URL.Path),
				slog.Int("body_size", len(body)))
			httputil.HandleErrorGin(c, cryptoDomain.ErrSignatureInvalid, logger)
			c.Abort()
			return
		}

		setRawBody(c, body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		c.Next()
	}
}

// readBody reads the whole request body under the size limit.
func readBody(c *gin.Context, maxBodyBytes int64) ([]byte, error) {
	if c.Request.Body == nil {
		return []byte{}, nil
	}

	reader := io.Reader(c.Request.Body)
	if maxBodyBytes > 0 {
		reader = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, apperrors.Wrapf(apperrors.ErrPayloadTooLarge, "body exceeds %d bytes", maxBodyBytes)
		}
		return nil, apperrors.Wrap(apperrors.ErrBadRequest, "failed to read request body")
	}
	return body, nil
}
