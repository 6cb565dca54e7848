package gcs

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/petcare/vetclinic-backend/pkg/config"
	"github.com/petcare/vetclinic-backend/pkg/logger"
)

const (
	apiHost        = "https://storage.googleapis.com"
	requestTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
)

var errNoBucket = errors.New("gcs bucket is required")

// Client covers the three object operations the clinic needs: upload,
// delete and signed reads. Requests are authorized by an oauth2 transport.
type Client struct {
	http   *http.Client
	bucket string
	signer *signer
	now    func() time.Time
}

// NewClient loads credentials, then lists one object to prove the bucket is
// reachable.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errNoBucket
	}
	tokens, sign, err := loadCredentials(ctx, gcp)
	if err != nil {
		return nil, err
	}
	httpClient := oauth2.NewClient(ctx, tokens)
	httpClient.Timeout = requestTimeout

	client := &Client{http: httpClient, bucket: cfg.BucketName, signer: sign, now: time.Now}
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"bucket": cfg.BucketName, "can_sign": sign != nil}), "gcs client ready")
	}
	return client, nil
}

func (c *Client) resolveBucket(bucket string) (string, error) {
	if bucket == "" {
		bucket = c.bucket
	}
	if bucket == "" {
		return "", errNoBucket
	}
	return bucket, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.http == nil {
		return errors.New("gcs client not initialized")
	}
	bucket, err := c.resolveBucket("")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/storage/v1/b/%s/o?maxResults=1", apiHost, url.PathEscape(bucket))
	return c.call(ctx, http.MethodGet, endpoint, "", nil, http.StatusOK)
}

// UploadObject stores data with a single media upload request.
func (c *Client) UploadObject(ctx context.Context, bucket, object, contentType string, data []byte) error {
	bucket, err := c.resolveBucket(bucket)
	if err != nil {
		return err
	}
	if object == "" {
		return errors.New("object name is required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	query := url.Values{"uploadType": {"media"}, "name": {object}}
	endpoint := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?%s", apiHost, url.PathEscape(bucket), query.Encode())
	return c.call(ctx, http.MethodPost, endpoint, contentType, bytes.NewReader(data), http.StatusOK, http.StatusCreated)
}

// DeleteObject is idempotent: a missing object is not an error.
func (c *Client) DeleteObject(ctx context.Context, bucket, object string) error {
	bucket, err := c.resolveBucket(bucket)
	if err != nil {
		return err
	}
	if object == "" {
		return errors.New("object name is required")
	}
	endpoint := fmt.Sprintf("%s/storage/v1/b/%s/o/%s", apiHost, url.PathEscape(bucket), url.PathEscape(object))
	return c.call(ctx, http.MethodDelete, endpoint, "", nil, http.StatusOK, http.StatusNoContent, http.StatusNotFound)
}

// SignedReadURL returns a V2 signed GET URL valid for ttl.
func (c *Client) SignedReadURL(bucket, object string, ttl time.Duration) (string, error) {
	if c == nil || c.signer == nil {
		return "", errors.New("signed urls need service account credentials")
	}
	bucket, err := c.resolveBucket(bucket)
	if err != nil {
		return "", err
	}
	if object == "" {
		return "", errors.New("object name is required")
	}
	if ttl <= 0 {
		return "", errors.New("signed url ttl must be positive")
	}

	expires := strconv.FormatInt(c.now().Add(ttl).Unix(), 10)
	resource := "/" + bucket + "/" + object
	signature, err := c.signer.sign([]byte("GET\n\n\n" + expires + "\n" + resource))
	if err != nil {
		return "", fmt.Errorf("sign url: %w", err)
	}
	query := url.Values{
		"GoogleAccessId": {c.signer.email},
		"Expires":        {expires},
		"Signature":      {base64.StdEncoding.EncodeToString(signature)},
	}
	return apiHost + (&url.URL{Path: resource}).EscapedPath() + "?" + query.Encode(), nil
}

// call sends one JSON API request and fails unless the status is one of ok.
func (c *Client) call(ctx context.Context, method, endpoint, contentType string, body io.Reader, ok ...int) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gcs %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	for _, status := range ok {
		if resp.StatusCode == status {
			return nil
		}
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return fmt.Errorf("gcs %s %s: %s %s", method, req.URL.Path, resp.Status, strings.TrimSpace(string(detail)))
}
