package transport

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/richard-senior/podds/internal/logger"
)

// CABundleEnv names an optional PEM file of extra root certificates, for
// networks that intercept TLS.
const CABundleEnv = "PODDS_CA_BUNDLE"

var (
	httpClient     *http.Client
	httpClientOnce sync.Once
)

// getCABundle returns the extra CA bundle if one is configured
func getCABundle() ([]byte, error) {
	bundlePath := os.Getenv(CABundleEnv)
	if bundlePath == "" {
		return nil, nil
	}
	caCert, err := os.ReadFile(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA bundle %s: %w", bundlePath, err)
	}
	return caCert, nil
}

// GetCustomHTTPClient returns the shared HTTP client with the system roots plus
// any extra CA bundle.
func GetCustomHTTPClient() *http.Client {
	httpClientOnce.Do(func() {
		rootCAs, err := x509.SystemCertPool()
		if err != nil {
			logger.Warn("Failed to get system cert pool", err)
			rootCAs = x509.NewCertPool()
		}

		extra, err := getCABundle()
		if err != nil {
			logger.Warn("Proceeding without extra CA bundle", err)
		} else if extra != nil {
			if ok := rootCAs.AppendCertsFromPEM(extra); !ok {
				logger.Warn("Failed to append extra CA certificates")
			} else {
				logger.Info("Added extra CA bundle to root CAs")
			}
		}

		httpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{RootCAs: rootCAs},
				Proxy:           http.ProxyFromEnvironment,
			},
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		}
	})
	return httpClient
}

// Fetch GETs url and returns the decoded body. Compressed responses (gzip,
// deflate, br) are decoded here because the request sets Accept-Encoding
// itself, which disables net/http's transparent gzip handling.
func Fetch(ctx context.Context, url string, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("User-Agent", "podds/1.0")

	resp, err := GetCustomHTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request returned error status %d", resp.StatusCode)
	}

	reader, err := DecodeBody(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return data, nil
}

// DecodeBody wraps body in a decoder for the given Content-Encoding. Unknown
// encodings are passed through with a warning.
func DecodeBody(contentEncoding string, body io.ReadCloser) (io.ReadCloser, error) {
	switch contentEncoding {
	case "gzip":
		logger.Debug("Handling gzip compressed content")
		r, err := NewGzipReader(body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return r, nil
	case "deflate":
		logger.Debug("Handling deflate compressed content")
		return NewDeflateReader(body)
	case "br":
		logger.Debug("Handling brotli compressed content")
		return NewBrotliReader(body)
	case "", "identity":
	default:
		logger.Warn("Unknown content encoding:", contentEncoding)
	}
	return io.NopCloser(body), nil
}

// NewGzipReader creates a gzip reader from the provided io.ReadCloser
func NewGzipReader(r io.ReadCloser) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// NewDeflateReader creates a deflate reader from the provided io.ReadCloser
func NewDeflateReader(r io.ReadCloser) (io.ReadCloser, error) {
	return flate.NewReader(r), nil
}

// NewBrotliReader creates a brotli reader from the provided io.ReadCloser
func NewBrotliReader(r io.ReadCloser) (io.ReadCloser, error) {
	return io.NopCloser(brotli.NewReader(r)), nil
}
