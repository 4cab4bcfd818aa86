package yandex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkazanov/diskbot/internal/logger"
)

const defaultDiskAddr = "https://cloud-api.yandex.net/v1/disk"

// DiskError is an error reported by the Disk API itself (bad path,
// already published and so on). Its message is safe to show to the user
type DiskError struct {
	Status  int
	Message string
}

func (e *DiskError) Error() string {
	return fmt.Sprintf("disk api: status %d: %s", e.Status, e.Message)
}

// ElementInfo describes a disk resource
type ElementInfo struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Type      string `json:"type"`
	Size      int64  `json:"size,omitempty"`
	PublicURL string `json:"public_url,omitempty"`
	Created   string `json:"created,omitempty"`
	Modified  string `json:"modified,omitempty"`
}

// DiskClient calls the Yandex.Disk REST API on the user's behalf
type DiskClient struct {
	DiskAddr string

	client *http.Client
	logger logger.Logger
}

func NewDiskClient(addr string, l logger.Logger) *DiskClient {
	if addr == "" {
		addr = defaultDiskAddr
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &DiskClient{
		DiskAddr: addr,
		client:   &http.Client{},
		logger:   l,
	}
}

// Publish makes the disk resource at path public
func (c *DiskClient) Publish(ctx context.Context, accessToken string, path string) error {
	reqURL := c.DiskAddr + "/resources/publish?path=" + url.QueryEscape(path)

	resp, err := c.do(ctx, http.MethodPut, reqURL, accessToken)
	if err != nil {
		return err
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode >= 300 {
		return c.apiError(resp, "publish", path)
	}

	return nil
}

// GetElementInfo returns metadata of the disk resource at path
func (c *DiskClient) GetElementInfo(ctx context.Context, accessToken string, path string) (ElementInfo, error) {
	var info ElementInfo

	query := url.Values{
		"path":   {path},
		"fields": {"name,path,type,size,public_url,created,modified"},
	}
	reqURL := c.DiskAddr + "/resources?" + query.Encode()

	resp, err := c.do(ctx, http.MethodGet, reqURL, accessToken)
	if err != nil {
		return info, err
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return info, c.apiError(resp, "get element info", path)
	}

	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return info, fmt.Errorf("failed to decode response: %w", err)
	}

	return info, nil
}

func (c *DiskClient) do(ctx context.Context, method string, reqURL string, accessToken string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	return resp, nil
}

func (c *DiskClient) apiError(resp *http.Response, op string, path string) error {
	var body struct {
		Message     string `json:"message"`
		Description string `json:"description"`
	}

	message := "unexpected Disk API response"
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		switch {
		case body.Message != "":
			message = body.Message
		case body.Description != "":
			message = body.Description
		}
	}

	c.logger.Warn("Disk API error", "op", op, "path", path, "status", resp.StatusCode, "message", message)
	return &DiskError{Status: resp.StatusCode, Message: message}
}
