package slack

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{BotToken: "xoxb-test", AppToken: "xapp-test", BaseURL: baseURL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestPostMessage(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat.postMessage" || r.Header.Get("Authorization") != "Bearer xoxb-test" {
			t.Errorf("request = %s %s", r.URL.Path, r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	if err := newTestClient(t, server.URL).PostMessage(context.Background(), "C1", "hello", "171.01"); err != nil {
		t.Fatalf("PostMessage() error = %v", err)
	}
	if got["channel"] != "C1" || got["text"] != "hello" || got["thread_ts"] != "171.01" {
		t.Fatalf("payload = %v", got)
	}
}

func TestPostMessageAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer server.Close()

	err := newTestClient(t, server.URL).PostMessage(context.Background(), "C404", "x", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "channel_not_found" {
		t.Fatalf("error = %v", err)
	}
}

func TestUploadFileExternalFlow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query_result_20260219_101500.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var steps []string
	var uploaded string
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		steps = append(steps, r.URL.Path)
		switch r.URL.Path {
		case "/files.getUploadURLExternal":
			if err := r.ParseForm(); err != nil {
				t.Errorf("ParseForm() error = %v", err)
			}
			if r.Form.Get("filename") != "query_result_20260219_101500.csv" || r.Form.Get("length") != "8" {
				t.Errorf("form = %v", r.Form)
			}
			_, _ = w.Write([]byte(`{"ok":true,"upload_url":"` + server.URL + `/upload/F1","file_id":"F1"}`))
		case "/upload/F1":
			raw, _ := io.ReadAll(r.Body)
			uploaded = string(raw)
			w.WriteHeader(http.StatusOK)
		case "/files.completeUploadExternal":
			var body struct {
				Files     []map[string]string `json:"files"`
				ChannelID string              `json:"channel_id"`
				ThreadTS  string              `json:"thread_ts"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.ChannelID != "C1" || len(body.Files) != 1 || body.Files[0]["id"] != "F1" || body.ThreadTS != "171.01" {
				t.Errorf("complete body = %+v", body)
			}
			_, _ = w.Write([]byte(`{"ok":true,"files":[{"id":"F1","title":"Results","permalink":"https://files.slack.com/F1"}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	file, err := newTestClient(t, server.URL).UploadFile(context.Background(), Upload{Path: path, Title: "Results", Channel: "C1", ThreadTS: "171.01"})
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	if file.ID != "F1" || file.Permalink != "https://files.slack.com/F1" {
		t.Fatalf("file = %+v", file)
	}
	if uploaded != "a,b\n1,2\n" {
		t.Fatalf("uploaded = %q", uploaded)
	}
	if len(steps) != 3 {
		t.Fatalf("steps = %v", steps)
	}
}

func TestUploadFileMissingFile(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1")
	if _, err := client.UploadFile(context.Background(), Upload{Path: filepath.Join(t.TempDir(), "missing.csv"), Channel: "C1"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestDeleteFileAndOpenConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files.delete":
			_, _ = w.Write([]byte(`{"ok":true}`))
		case "/apps.connections.open":
			if r.Header.Get("Authorization") != "Bearer xapp-test" {
				t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
			}
			_, _ = w.Write([]byte(`{"ok":true,"url":"wss://wss.slack.test/link"}`))
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.DeleteFile(context.Background(), "F1"); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}
	url, err := client.OpenConnection(context.Background())
	if err != nil || url != "wss://wss.slack.test/link" {
		t.Fatalf("OpenConnection() = %q, %v", url, err)
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestFileInfoAndDownload(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer xoxb-test" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		switch r.URL.Path {
		case "/files.info":
			if err := r.ParseForm(); err != nil || r.PostForm.Get("file") != "F1" {
				t.Errorf("form = %v, %v", r.PostForm, err)
			}
			_, _ = w.Write([]byte(`{"ok":true,"file":{"id":"F1","name":"../sales.csv","filetype":"csv","size":8,"url_private_download":"` + server.URL + `/download/F1"}}`))
		case "/download/F1":
			_, _ = w.Write([]byte("a,b\n1,2\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	file, err := client.FileInfo(context.Background(), "F1")
	if err != nil {
		t.Fatalf("FileInfo() error = %v", err)
	}
	if file.Filetype != "csv" || file.Size != 8 {
		t.Fatalf("file = %+v", file)
	}

	dir := filepath.Join(t.TempDir(), "downloads")
	path, written, err := client.DownloadFile(context.Background(), file, dir)
	if err != nil {
		t.Fatalf("DownloadFile() error = %v", err)
	}
	if path != filepath.Join(dir, "sales.csv") || written != 8 {
		t.Fatalf("path = %q written = %d", path, written)
	}
	raw, err := os.ReadFile(path)
	if err != nil || string(raw) != "a,b\n1,2\n" {
		t.Fatalf("content = %q, %v", raw, err)
	}
}

func TestDownloadFileRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	dir := t.TempDir()
	_, _, err := newTestClient(t, server.URL).DownloadFile(context.Background(), SharedFile{ID: "F2", Name: "x.csv", URLPrivateDownload: server.URL + "/x"}, dir)
	if err == nil {
		t.Fatal("expected error")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "x.csv")); !os.IsNotExist(statErr) {
		t.Fatalf("partial file left behind: %v", statErr)
	}
}
