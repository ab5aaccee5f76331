package telegram

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x0BSoD/easyNotifyer/internal/config"
)

type request struct {
	path string
	form map[string]string
	file string
	data string
}

type fakeBot struct {
	mu       sync.Mutex
	requests []request
}

func (f *fakeBot) all() []request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]request(nil), f.requests...)
}

// newTestClient points the client at a fake Bot API through the environment,
// so tests using it cannot run in parallel.
func newTestClient(t *testing.T, opts ...Option) (*Client, *fakeBot) {
	t.Helper()

	bot := &fakeBot{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := request{path: r.URL.Path, form: map[string]string{}}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			if err := r.ParseMultipartForm(1 << 20); err == nil {
				for k, v := range r.MultipartForm.Value {
					req.form[k] = v[0]
				}
				if fh := r.MultipartForm.File["document"]; len(fh) > 0 {
					req.file = fh[0].Filename
					if fd, err := fh[0].Open(); err == nil {
						b, _ := io.ReadAll(fd)
						req.data = string(b)
					}
				}
			}
		} else if err := r.ParseForm(); err == nil {
			for k, v := range r.PostForm {
				req.form[k] = v[0]
			}
		}

		bot.mu.Lock()
		bot.requests = append(bot.requests, req)
		bot.mu.Unlock()

		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`)
	}))
	t.Cleanup(srv.Close)

	t.Setenv("EASY_NOTIFYER_TELEGRAM_API_ENDPOINT", srv.URL+"/bot%s/%s")

	base := []Option{WithToken("123:abc"), WithChatID(1, 2), WithHTTPClient(srv.Client())}
	c, err := New(append(base, opts...)...)
	require.NoError(t, err)

	return c, bot
}

func TestSendMessage(t *testing.T) {
	c, bot := newTestClient(t, WithParseMode("HTML"), WithDisableWebPagePreview(true))

	err := c.SendMessage(t.Context(), "<b>deploy</b> finished")
	require.NoError(t, err)

	reqs := bot.all()
	require.Len(t, reqs, 2)
	for i, chatID := range []string{"1", "2"} {
		assert.Equal(t, "/bot123:abc/sendMessage", reqs[i].path)
		assert.Equal(t, chatID, reqs[i].form["chat_id"])
		assert.Equal(t, "<b>deploy</b> finished", reqs[i].form["text"])
		assert.Equal(t, "HTML", reqs[i].form["parse_mode"])
		assert.Equal(t, "true", reqs[i].form["disable_web_page_preview"])
		assert.NotContains(t, reqs[i].form, "disable_notification")
	}
}

func TestSendMessageOptions(t *testing.T) {
	c, bot := newTestClient(t, WithParseMode("HTML"))

	err := c.SendMessage(t.Context(), "*done*", To(-100), ParseMode("MarkdownV2"), Silent(), NoPreview())
	require.NoError(t, err)

	reqs := bot.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "-100", reqs[0].form["chat_id"])
	assert.Equal(t, "MarkdownV2", reqs[0].form["parse_mode"])
	assert.Equal(t, "true", reqs[0].form["disable_notification"])
	assert.Equal(t, "true", reqs[0].form["disable_web_page_preview"])
}

func TestSendAttachment(t *testing.T) {
	c, bot := newTestClient(t)

	err := c.SendAttachment(t.Context(), "nightly dump", "dump.csv", []byte("id,name\n1,a\n"))
	require.NoError(t, err)

	reqs := bot.all()
	require.Len(t, reqs, 2)
	for i, chatID := range []string{"1", "2"} {
		assert.Equal(t, "/bot123:abc/sendDocument", reqs[i].path)
		assert.Equal(t, chatID, reqs[i].form["chat_id"])
		assert.Equal(t, "nightly dump", reqs[i].form["caption"])
		assert.Equal(t, "dump.csv", reqs[i].file)
		assert.Equal(t, "id,name\n1,a\n", reqs[i].data)
	}
}

func TestSendAttachmentDefaultFilename(t *testing.T) {
	t.Setenv("EASY_NOTIFYER_FILENAME_DT_FORMAT", "20060102")

	c, bot := newTestClient(t)
	c.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }

	require.NoError(t, c.SendAttachment(t.Context(), "", "", []byte("x"), To(7)))

	reqs := bot.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "20240309.txt", reqs[0].file)
}

func TestSendEmpty(t *testing.T) {
	c, bot := newTestClient(t)

	assert.ErrorIs(t, c.SendMessage(t.Context(), ""), ErrEmptyMessage)
	assert.ErrorIs(t, c.SendAttachment(t.Context(), "caption", "a.txt", nil), ErrEmptyMessage)
	assert.Empty(t, bot.all())
}

func TestNewMissingConfig(t *testing.T) {
	t.Setenv("EASY_NOTIFYER_TELEGRAM_TOKEN", "")
	t.Setenv("EASY_NOTIFYER_TELEGRAM_CHAT_ID", "")

	_, err := New()
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrConfig)

	var cfgErr *config.Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "token", cfgErr.Field)
}
