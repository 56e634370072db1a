package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"moa_backend/internal/logger"
	"moa_backend/pkg/apperrors"
)

// Envelope - единый конверт ответов кассового и партнёрского сервисов:
// {"responseCode": 0, "responseMessage": "...", "data": {...}}.
// Ненулевой responseCode - бизнес-отказ сервиса.
type Envelope struct {
	ResponseCode    int             `json:"responseCode"`
	ResponseMessage string          `json:"responseMessage"`
	Data            json.RawMessage `json:"data"`
}

// Client - HTTP-клиент стороннего сервиса, отвечающего конвертом.
type Client struct {
	name    string
	baseURL string
	token   string
	http    *http.Client
}

func New(name, baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Call выполняет запрос к сервису и разбирает конверт.
// body (если не nil) сериализуется в JSON, data конверта - в out (если не nil).
// Транспортные сбои и мусор в ответе превращаются в CodeUpstreamTransport,
// ненулевой responseCode - в CodeUpstreamBusiness с кодом сервиса.
func (c *Client) Call(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	start := time.Now()
	err := c.call(ctx, method, path, query, body, out)
	logger.UpstreamLog(c.name, method+" "+path, time.Since(start), err)
	return err
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.InternalError(err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.UpstreamTransport(err, c.name, fmt.Sprintf("request to %s failed", path))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.UpstreamTransport(err, c.name, fmt.Sprintf("reading response of %s failed", path))
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return apperrors.UpstreamTransport(err, c.name, fmt.Sprintf("malformed response of %s", path))
	}

	if env.ResponseCode != 0 {
		appErr := apperrors.UpstreamBusiness(c.name, env.ResponseCode)
		if env.ResponseMessage != "" {
			appErr.Message = env.ResponseMessage
		}
		return appErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return apperrors.UpstreamTransport(err, c.name, fmt.Sprintf("malformed data of %s", path))
		}
	}
	return nil
}
