package proxmox

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError 带状态码的 API 错误,上层据此区分 401 和其他失败
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned %d: %s", e.Status, e.Body)
}

// Client Proxmox VE / PDM 的 HTTP API 客户端
// 认证方式二选一:
//   - API Token: Authorization 头直接携带,无需往返
//   - 用户名密码: 先调 /access/ticket 换取会话票据和 CSRF token
//
// 自签名证书在现场很常见,insecure 只作用于本客户端自己的 Transport,
// 不会污染进程級的证书校验
type Client struct {
	baseURL    string
	httpClient *http.Client

	authHeader string // PVEAPIToken=<id>=<secret>
	ticket     string
	csrfToken  string
}

// NewClient 创建客户端,address 不带协议前缀
func NewClient(address string, port int, insecure bool) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure},
	}
	return &Client{
		baseURL: fmt.Sprintf("https://%s:%d", address, port),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
	}
}

// UseToken 配置 API Token 认证
func (c *Client) UseToken(tokenID, secret string) {
	c.authHeader = fmt.Sprintf("PVEAPIToken=%s=%s", tokenID, secret)
}

// Login 用户名密码认证,换取票据和 CSRF token
// Proxmox 的用户名必须带 realm,如 root@pam;没写 realm 的默认补 @pam
func (c *Client) Login(ctx context.Context, username, password string) error {
	if !strings.Contains(username, "@") {
		username += "@pam"
	}
	body := url.Values{
		"username": {username},
		"password": {password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api2/json/access/ticket", strings.NewReader(body.Encode()))
	if err != nil {
		return fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read login response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var envelope struct {
		Data struct {
			Ticket    string `json:"ticket"`
			CSRFToken string `json:"CSRFPreventionToken"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("unmarshal login response: %w", err)
	}
	if envelope.Data.Ticket == "" {
		return fmt.Errorf("login succeeded but no ticket returned")
	}

	c.ticket = envelope.Data.Ticket
	c.csrfToken = envelope.Data.CSRFToken
	return nil
}

// Get 执行 GET 请求并把外层 data 信封里的内容解析到 out
func (c *Client) Get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api2/json"+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	} else if c.ticket != "" {
		req.AddCookie(&http.Cookie{Name: "PVEAuthCookie", Value: c.ticket})
		// GET 不强制要求 CSRF token,带上也无害
		if c.csrfToken != "" {
			req.Header.Set("CSRFPreventionToken", c.csrfToken)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("unmarshal response envelope: %w", err)
	}
	if out == nil || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return nil
}
