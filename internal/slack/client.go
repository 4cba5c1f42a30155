// Package slack is a small Slack Web API and Socket Mode client covering the
// calls the bot makes.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const DefaultBaseURL = "https://slack.com/api"

type Config struct {
	BotToken string
	AppToken string
	BaseURL  string
	Timeout  time.Duration
}

type Client struct {
	baseURL  string
	botToken string
	appToken string
	client   *http.Client
}

// File is an uploaded file as reported by files.completeUploadExternal.
type File struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	Permalink string `json:"permalink"`
}

// SharedFile is the part of files.info the bot reads for a shared file.
type SharedFile struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Title              string `json:"title,omitempty"`
	Filetype           string `json:"filetype"`
	Mimetype           string `json:"mimetype,omitempty"`
	Size               int64  `json:"size"`
	URLPrivateDownload string `json:"url_private_download"`
}

type Upload struct {
	Path     string
	Title    string
	Channel  string
	ThreadTS string
}

// APIError is a response with "ok": false.
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack %s: %s", e.Method, e.Code)
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BotToken) == "" {
		return nil, fmt.Errorf("slack bot token is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		botToken: strings.TrimSpace(cfg.BotToken),
		appToken: strings.TrimSpace(cfg.AppToken),
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) PostMessage(ctx context.Context, channel, text, threadTS string) error {
	body := map[string]any{"channel": channel, "text": text}
	if threadTS != "" {
		body["thread_ts"] = threadTS
	}
	return c.callJSON(ctx, "chat.postMessage", c.botToken, body, nil)
}

// UploadFile runs the external upload flow: reserve an upload URL, send the
// bytes, then complete the upload into the channel.
func (c *Client) UploadFile(ctx context.Context, upload Upload) (File, error) {
	content, err := os.ReadFile(upload.Path)
	if err != nil {
		return File{}, fmt.Errorf("read upload file: %w", err)
	}
	name := filepath.Base(upload.Path)
	title := upload.Title
	if title == "" {
		title = name
	}

	var reserved struct {
		UploadURL string `json:"upload_url"`
		FileID    string `json:"file_id"`
	}
	form := url.Values{"filename": {name}, "length": {strconv.Itoa(len(content))}}
	if err := c.callForm(ctx, "files.getUploadURLExternal", form, &reserved); err != nil {
		return File{}, err
	}
	if reserved.UploadURL == "" || reserved.FileID == "" {
		return File{}, fmt.Errorf("slack files.getUploadURLExternal: missing upload_url or file_id")
	}

	if err := c.sendContent(ctx, reserved.UploadURL, name, content); err != nil {
		return File{}, err
	}

	complete := map[string]any{
		"files":      []map[string]string{{"id": reserved.FileID, "title": title}},
		"channel_id": upload.Channel,
	}
	if upload.ThreadTS != "" {
		complete["thread_ts"] = upload.ThreadTS
	}
	var completed struct {
		Files []File `json:"files"`
	}
	if err := c.callJSON(ctx, "files.completeUploadExternal", c.botToken, complete, &completed); err != nil {
		return File{}, err
	}
	if len(completed.Files) == 0 {
		return File{ID: reserved.FileID, Title: title}, nil
	}
	file := completed.Files[0]
	if file.ID == "" {
		file.ID = reserved.FileID
	}
	return file, nil
}

func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	return c.callJSON(ctx, "files.delete", c.botToken, map[string]string{"file": fileID}, nil)
}

func (c *Client) FileInfo(ctx context.Context, fileID string) (SharedFile, error) {
	var info struct {
		File SharedFile `json:"file"`
	}
	if err := c.callForm(ctx, "files.info", url.Values{"file": {fileID}}, &info); err != nil {
		return SharedFile{}, err
	}
	if info.File.ID == "" {
		info.File.ID = fileID
	}
	return info.File, nil
}

// DownloadFile saves a shared file into dir under its own base name and
// returns the path and the number of bytes written.
func (c *Client) DownloadFile(ctx context.Context, file SharedFile, dir string) (string, int64, error) {
	if strings.TrimSpace(file.URLPrivateDownload) == "" {
		return "", 0, fmt.Errorf("file %s has no download url", file.ID)
	}
	name := filepath.Base(strings.TrimSpace(file.Name))
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = file.ID
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create download directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.URLPrivateDownload, http.NoBody)
	if err != nil {
		return "", 0, fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)
	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("download %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", 0, fmt.Errorf("download %s failed status=%d", name, resp.StatusCode)
	}

	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", path, err)
	}
	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("write %s: %w", path, err)
	}
	return path, written, nil
}

// OpenConnection returns a Socket Mode websocket URL. It needs the app-level
// token.
func (c *Client) OpenConnection(ctx context.Context) (string, error) {
	if c.appToken == "" {
		return "", fmt.Errorf("slack app token is required for socket mode")
	}
	var opened struct {
		URL string `json:"url"`
	}
	if err := c.callJSON(ctx, "apps.connections.open", c.appToken, nil, &opened); err != nil {
		return "", err
	}
	if opened.URL == "" {
		return "", fmt.Errorf("slack apps.connections.open: empty url")
	}
	return opened.URL, nil
}

func (c *Client) sendContent(ctx context.Context, uploadURL, name string, content []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("upload %s failed status=%d", name, resp.StatusCode)
	}
	return nil
}

func (c *Client) callJSON(ctx context.Context, method, token string, body any, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", method, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+token)
	return c.do(req, method, out)
}

func (c *Client) callForm(ctx context.Context, method string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.botToken)
	return c.do(req, method, out)
}

func (c *Client) do(req *http.Request, method string, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("slack %s failed status=%d body=%s", method, resp.StatusCode, string(raw))
	}

	var status struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !status.OK {
		return &APIError{Method: method, Code: status.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}
