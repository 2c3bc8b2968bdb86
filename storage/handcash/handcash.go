// Package handcash publishes ledger payloads as data transactions through the
// HandCash Connect API.
package handcash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jmcleod/inkseal/internal/util"
	"github.com/jmcleod/inkseal/storage"
)

const (
	DefaultBaseURL     = "https://connect.handcash.io"
	DefaultDescription = "inkseal document storage"
	DefaultAppName     = "inkseal"

	dataPath = "/v1/connect/data"
)

var (
	ErrUnauthorized = errors.New("handcash: unauthorized")
	ErrUnavailable  = errors.New("handcash: service unavailable")
)

// Config configures a Client.
type Config struct {
	BaseURL     string
	AccessToken string
	AppName     string
	Description string
	Timeout     time.Duration
}

// Client implements storage.Ledger against the HandCash data endpoint.
// The remote API has no listing call, so List returns the references
// published through this Client since it was created.
type Client struct {
	client      *resty.Client
	appName     string
	description string
	now         func() time.Time

	mu        sync.RWMutex
	published []string
}

var _ storage.Ledger = (*Client)(nil)

// New returns a Client for cfg.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.AppName == "" {
		cfg.AppName = DefaultAppName
	}
	if cfg.Description == "" {
		cfg.Description = DefaultDescription
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if token := strings.TrimSpace(cfg.AccessToken); token != "" {
		cli.SetAuthToken(token)
	}

	return &Client{
		client:      cli,
		appName:     cfg.AppName,
		description: cfg.Description,
		now:         time.Now,
	}
}

type dataItem struct {
	Value    string `json:"value"`
	Encoding string `json:"encoding"`
}

type attachment struct {
	Format string          `json:"format"`
	Value  attachmentValue `json:"value"`
}

type attachmentValue struct {
	App       string `json:"app"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type publishRequest struct {
	Description string     `json:"description"`
	Data        []dataItem `json:"data"`
	Payments    []any      `json:"payments"`
	Attachment  attachment `json:"attachment"`
}

type publishResponse struct {
	TransactionID string `json:"transactionId"`
}

type fetchResponse struct {
	TransactionID string     `json:"transactionId"`
	Data          []dataItem `json:"data"`
}

func (c *Client) Publish(ctx context.Context, data []byte) (*storage.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, storage.ErrEmptyPayload
	}
	now := c.now().UTC()

	req := publishRequest{
		Description: c.description,
		Data:        []dataItem{{Value: util.HexEncode(data), Encoding: "hex"}},
		Payments:    []any{},
		Attachment: attachment{
			Format: "json",
			Value:  attachmentValue{App: c.appName, Type: "document", Timestamp: now.UnixMilli()},
		},
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(dataPath)
	if err != nil {
		return nil, fmt.Errorf("%w: publish request: %w", storage.ErrPublishFailed, err)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrPublishFailed, err)
	}

	var pr publishResponse
	if err := json.Unmarshal(resp.Body(), &pr); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", storage.ErrPublishFailed, err)
	}
	if pr.TransactionID == "" {
		return nil, fmt.Errorf("%w: no transaction id returned", storage.ErrPublishFailed)
	}
	ref := strings.ToLower(pr.TransactionID)
	if err := storage.ValidateReference(ref); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrPublishFailed, err)
	}

	c.mu.Lock()
	c.published = append(c.published, ref)
	c.mu.Unlock()

	return &storage.Receipt{Ref: ref, Size: len(data), Timestamp: now}, nil
}

func (c *Client) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := storage.ValidateReference(ref); err != nil {
		return nil, err
	}
	ref = strings.ToLower(ref)

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("txid", ref).
		Get(dataPath + "/{txid}")
	if err != nil {
		return nil, fmt.Errorf("fetch request: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, storage.NotFound(ref)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}

	var fr fetchResponse
	if err := json.Unmarshal(resp.Body(), &fr); err != nil {
		return nil, fmt.Errorf("decoding fetch response: %w", err)
	}
	if len(fr.Data) == 0 {
		return nil, storage.NotFound(ref)
	}
	return decodeItem(fr.Data[0])
}

func (c *Client) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.published...), nil
}

func decodeItem(item dataItem) ([]byte, error) {
	switch item.Encoding {
	case "hex", "":
		b, err := util.HexDecode(item.Value)
		if err != nil {
			return nil, fmt.Errorf("decoding hex payload: %w", err)
		}
		return b, nil
	case "base64":
		b, err := util.Base64Decode(item.Value)
		if err != nil {
			return nil, fmt.Errorf("decoding base64 payload: %w", err)
		}
		return b, nil
	case "utf8", "utf-8":
		return []byte(item.Value), nil
	default:
		return nil, fmt.Errorf("unsupported payload encoding %q", item.Encoding)
	}
}

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))

	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, body)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", ErrUnavailable, body)
	default:
		if body == "" {
			body = http.StatusText(resp.StatusCode())
		}
		return fmt.Errorf("handcash: http %d: %s", resp.StatusCode(), body)
	}
}
