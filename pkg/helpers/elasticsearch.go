package helpers

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// NewESClient creates the client used for the search indexes, with optional basic auth.
func NewESClient(addrs []string, username, password string) (*elasticsearch.Client, error) {
	cfg := elasticsearch.Config{
		Addresses:     addrs,
		Username:      username,
		Password:      password,
		RetryOnStatus: []int{502, 503, 504},
		MaxRetries:    3,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 5 * time.Second,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		},
	}
	return elasticsearch.NewClient(cfg)
}

// EnsureIndices creates every index in names that does not exist yet.
func EnsureIndices(ctx context.Context, es *elasticsearch.Client, names ...string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		res, err := esapi.IndicesExistsRequest{Index: []string{name}}.Do(ctx, es)
		if err != nil {
			return fmt.Errorf("es exists %s: %w", name, err)
		}
		_ = res.Body.Close()
		if res.StatusCode == http.StatusOK {
			continue
		}
		if res.StatusCode != http.StatusNotFound {
			return fmt.Errorf("es exists %s: %s", name, res.Status())
		}
		res, err = esapi.IndicesCreateRequest{Index: name}.Do(ctx, es)
		if err != nil {
			return fmt.Errorf("es create %s: %w", name, err)
		}
		_ = res.Body.Close()
		// another worker may have created it in between
		if res.IsError() && res.StatusCode != http.StatusBadRequest {
			return fmt.Errorf("es create %s: %s", name, res.Status())
		}
	}
	return nil
}
