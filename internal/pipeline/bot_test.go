package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IvanVatroslav/SQLoslav/internal/idempotency"
	"github.com/IvanVatroslav/SQLoslav/internal/query"
	"github.com/IvanVatroslav/SQLoslav/internal/slack"
)

func messageEnvelope(eventID, event string) slack.Envelope {
	return slack.Envelope{
		Type:    slack.EnvelopeEventCallback,
		EventID: eventID,
		Event:   json.RawMessage(event),
	}
}

func newTestBot(h *harness, store idempotency.Store) *Bot {
	return &Bot{Pipeline: h.pipeline, Store: store, Poster: h.delivery, Timeout: 5 * time.Second}
}

func waitBot(t *testing.T, bot *Bot) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := bot.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestBotProcessesDuplicateEventOnce(t *testing.T) {
	h := newHarness(t)
	h.executor.result = query.Result{Columns: []string{"x"}}
	bot := newTestBot(h, idempotency.NewMemoryStore())
	envelope := messageEnvelope("Ev42", `{"type":"message","text":"sql, vertica SELECT 1","channel":"C1","user":"U1","thread_ts":"171.5"}`)

	for i := 0; i < 2; i++ {
		if _, err := bot.Accept(context.Background(), envelope); err != nil {
			t.Fatalf("Accept() error = %v", err)
		}
	}
	waitBot(t, bot)

	if h.executor.calls() != 1 {
		t.Fatalf("executor calls = %d, want 1", h.executor.calls())
	}
	if h.delivery.postCount() != 1 {
		t.Fatalf("posts = %d, want 1", h.delivery.postCount())
	}
	reply := h.delivery.posts[0]
	if reply.channel != "C1" || reply.threadTS != "171.5" {
		t.Fatalf("reply = %+v", reply)
	}
	if reply.text != "Query executed successfully but returned no results.\nSQL query: ```SELECT 1```" {
		t.Fatalf("reply text = %q", reply.text)
	}
}

func TestBotPostsErrorTextOnce(t *testing.T) {
	h := newHarness(t)
	h.executor.err = errors.New("ORA-12541: no listener")
	bot := newTestBot(h, idempotency.NewMemoryStore())

	_, err := bot.Accept(context.Background(), messageEnvelope("Ev1", `{"type":"app_mention","text":"<@U0BOT> sql, virga SELECT 1 FROM dual","channel":"C9"}`))
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	waitBot(t, bot)

	if h.delivery.postCount() != 1 {
		t.Fatalf("posts = %+v", h.delivery.posts)
	}
	if h.delivery.posts[0].text != "Error in executing query for channel C9: ORA-12541: no listener" {
		t.Fatalf("text = %q", h.delivery.posts[0].text)
	}
	if h.executor.backends[0] != "VIRGA" {
		t.Fatalf("backend = %q", h.executor.backends[0])
	}
}

func TestBotEchoesChallenge(t *testing.T) {
	h := newHarness(t)
	store := idempotency.NewMemoryStore()
	bot := newTestBot(h, store)

	challenge, err := bot.Accept(context.Background(), slack.Envelope{Type: slack.EnvelopeURLVerification, Challenge: "3eZbrw1a", EventID: "Ev9"})
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if challenge != "3eZbrw1a" {
		t.Fatalf("challenge = %q", challenge)
	}
	if store.Len() != 0 {
		t.Fatal("url_verification must not claim an event id")
	}
}

func TestBotIgnoresBotMessages(t *testing.T) {
	h := newHarness(t)
	store := idempotency.NewMemoryStore()
	bot := newTestBot(h, store)

	for _, event := range []string{
		`{"type":"message","text":"sql, vertica SELECT 1","channel":"C1","bot_id":"B1"}`,
		`{"type":"message","subtype":"bot_message","text":"sql, vertica SELECT 1","channel":"C1"}`,
		`{"type":"message","subtype":"message_changed","channel":"C1"}`,
		`{"type":"reaction_added","channel":"C1"}`,
	} {
		if _, err := bot.Accept(context.Background(), messageEnvelope("Ev1", event)); err != nil {
			t.Fatalf("Accept() error = %v", err)
		}
	}
	waitBot(t, bot)
	if h.executor.calls() != 0 || store.Len() != 0 {
		t.Fatalf("executor calls = %d, claims = %d", h.executor.calls(), store.Len())
	}
}

type failingStore struct{}

func (failingStore) Claim(context.Context, string) (bool, error) {
	return false, errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
}

func (failingStore) Ping(context.Context) error { return errors.New("down") }

func TestBotStoreFailureIsRetryable(t *testing.T) {
	h := newHarness(t)
	bot := newTestBot(h, failingStore{})

	_, err := bot.Accept(context.Background(), messageEnvelope("Ev1", `{"type":"message","text":"sql, vertica SELECT 1","channel":"C1"}`))
	if !errors.Is(err, ErrClaimUnavailable) {
		t.Fatalf("err = %v", err)
	}
	waitBot(t, bot)
	if h.executor.calls() != 0 {
		t.Fatal("unclaimed events must not be processed")
	}
}

func TestBotOutlivesRequestContext(t *testing.T) {
	h := newHarness(t)
	h.executor.result = query.Result{Columns: []string{"x"}}
	bot := newTestBot(h, idempotency.NewMemoryStore())

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := bot.Accept(ctx, messageEnvelope("Ev1", `{"type":"message","text":"sql, vertica SELECT 1","channel":"C1"}`)); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	cancel()
	waitBot(t, bot)
	if h.delivery.postCount() != 1 {
		t.Fatalf("posts = %d", h.delivery.postCount())
	}
}

func TestBotMentionAndMessageForSameTSRunOnce(t *testing.T) {
	h := newHarness(t)
	h.executor.result = query.Result{Columns: []string{"x"}}
	bot := newTestBot(h, idempotency.NewMemoryStore())

	text := `"text":"<@U0BOT> sql, vertica SELECT 1","channel":"C1","user":"U1","ts":"1700000000.000200"`
	for _, envelope := range []slack.Envelope{
		messageEnvelope("EvA", `{"type":"message",`+text+`}`),
		messageEnvelope("EvB", `{"type":"app_mention",`+text+`}`),
	} {
		if _, err := bot.Accept(context.Background(), envelope); err != nil {
			t.Fatalf("Accept() error = %v", err)
		}
	}
	waitBot(t, bot)

	if h.executor.calls() != 1 {
		t.Fatalf("executor calls = %d, want 1", h.executor.calls())
	}
	if h.delivery.postCount() != 1 {
		t.Fatalf("posts = %d, want 1", h.delivery.postCount())
	}
}

func TestBotSameTextInDifferentMessagesRunsTwice(t *testing.T) {
	h := newHarness(t)
	h.executor.result = query.Result{Columns: []string{"x"}}
	bot := newTestBot(h, idempotency.NewMemoryStore())

	for i, ts := range []string{"1700000000.000200", "1700000000.000300"} {
		event := `{"type":"message","text":"sql, vertica SELECT 1","channel":"C1","ts":"` + ts + `"}`
		if _, err := bot.Accept(context.Background(), messageEnvelope("Ev"+ts, event)); err != nil {
			t.Fatalf("Accept(%d) error = %v", i, err)
		}
	}
	waitBot(t, bot)
	if h.executor.calls() != 2 {
		t.Fatalf("executor calls = %d, want 2", h.executor.calls())
	}
}

type fakeFileSource struct {
	mu        sync.Mutex
	file      slack.SharedFile
	infoErr   error
	downloads []string
}

func (f *fakeFileSource) FileInfo(_ context.Context, fileID string) (slack.SharedFile, error) {
	if f.infoErr != nil {
		return slack.SharedFile{}, f.infoErr
	}
	file := f.file
	file.ID = fileID
	return file, nil
}

func (f *fakeFileSource) DownloadFile(_ context.Context, file slack.SharedFile, dir string) (string, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, file.ID)
	return dir + "/" + file.Name, file.Size, nil
}

func (f *fakeFileSource) downloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.downloads)
}

const fileSharedEvent = `{"type":"file_shared","file_id":"F1","channel_id":"C7","user_id":"U1"}`

func TestBotDownloadsSupportedSharedFileSilently(t *testing.T) {
	h := newHarness(t)
	source := &fakeFileSource{file: slack.SharedFile{Name: "sales.csv", Filetype: "csv", Size: 8}}
	bot := newTestBot(h, idempotency.NewMemoryStore())
	bot.Files = &FileHandler{Source: source, Dir: t.TempDir()}

	for _, id := range []string{"Ev1", "Ev2"} {
		if _, err := bot.Accept(context.Background(), messageEnvelope(id, fileSharedEvent)); err != nil {
			t.Fatalf("Accept() error = %v", err)
		}
	}
	waitBot(t, bot)

	if source.downloadCount() != 1 {
		t.Fatalf("downloads = %d, want 1", source.downloadCount())
	}
	if h.delivery.postCount() != 0 || h.executor.calls() != 0 {
		t.Fatalf("posts = %d, executor calls = %d", h.delivery.postCount(), h.executor.calls())
	}
}

func TestBotRejectsUnsupportedSharedFile(t *testing.T) {
	h := newHarness(t)
	source := &fakeFileSource{file: slack.SharedFile{Name: "diagram.png", Filetype: "png"}}
	bot := newTestBot(h, idempotency.NewMemoryStore())
	bot.Files = &FileHandler{Source: source, Dir: t.TempDir()}

	if _, err := bot.Accept(context.Background(), messageEnvelope("Ev1", fileSharedEvent)); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	waitBot(t, bot)

	if source.downloadCount() != 0 {
		t.Fatalf("downloads = %d", source.downloadCount())
	}
	if h.delivery.postCount() != 1 {
		t.Fatalf("posts = %+v", h.delivery.posts)
	}
	got := h.delivery.posts[0]
	if got.channel != "C7" || got.text != "Sorry, the file type of diagram.png is not supported for processing." {
		t.Fatalf("post = %+v", got)
	}
}

func TestBotReportsSharedFileError(t *testing.T) {
	h := newHarness(t)
	source := &fakeFileSource{infoErr: &slack.APIError{Method: "files.info", Code: "file_not_found"}}
	bot := newTestBot(h, idempotency.NewMemoryStore())
	bot.Files = &FileHandler{Source: source, Dir: t.TempDir()}

	if _, err := bot.Accept(context.Background(), messageEnvelope("Ev1", fileSharedEvent)); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	waitBot(t, bot)

	if h.delivery.postCount() != 1 {
		t.Fatalf("posts = %+v", h.delivery.posts)
	}
	want := "An error occurred while processing the shared file: slack files.info: file_not_found"
	if h.delivery.posts[0].text != want {
		t.Fatalf("text = %q", h.delivery.posts[0].text)
	}
}

func TestBotIgnoresSharedFileWithoutHandler(t *testing.T) {
	h := newHarness(t)
	store := idempotency.NewMemoryStore()
	bot := newTestBot(h, store)

	if _, err := bot.Accept(context.Background(), messageEnvelope("Ev1", fileSharedEvent)); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	waitBot(t, bot)
	if h.delivery.postCount() != 0 || store.Len() != 0 {
		t.Fatalf("posts = %d, claims = %d", h.delivery.postCount(), store.Len())
	}
}
