package telegram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x0BSoD/easyNotifyer/internal/model"
)

const okResponse = `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`

type call struct {
	path string
	form map[string]string
	file string
	data string
}

type fakeAPI struct {
	mu     sync.Mutex
	calls  []call
	failOn string
}

func (f *fakeAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := call{path: r.URL.Path, form: map[string]string{}}

		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			for k, v := range r.MultipartForm.Value {
				c.form[k] = v[0]
			}
			if fh := r.MultipartForm.File["document"]; len(fh) > 0 {
				c.file = fh[0].Filename
				fd, err := fh[0].Open()
				require.NoError(t, err)
				b, err := io.ReadAll(fd)
				require.NoError(t, err)
				c.data = string(b)
			}
		} else {
			require.NoError(t, r.ParseForm())
			for k, v := range r.PostForm {
				c.form[k] = v[0]
			}
		}

		f.mu.Lock()
		f.calls = append(f.calls, c)
		f.mu.Unlock()

		if f.failOn != "" && c.form["chat_id"] == f.failOn {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
			return
		}
		_, _ = io.WriteString(w, okResponse)
	}
}

func newTestSender(t *testing.T, api *fakeAPI) *Sender {
	t.Helper()

	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	return New("123:abc", srv.URL+"/bot%s/%s", srv.Client())
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	s := newTestSender(t, api)

	err := s.Send(t.Context(), model.Delivery{
		ChatIDs:               []int64{10, -20},
		Report:                model.Report{Text: "crashed\nError:\nboom"},
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
		DisableNotification:   true,
	})
	require.NoError(t, err)

	require.Len(t, api.calls, 2)
	for i, chatID := range []string{"10", "-20"} {
		c := api.calls[i]
		assert.Equal(t, "/bot123:abc/sendMessage", c.path)
		assert.Equal(t, chatID, c.form["chat_id"])
		assert.Equal(t, "crashed\nError:\nboom", c.form["text"])
		assert.Equal(t, "HTML", c.form["parse_mode"])
		assert.Equal(t, "true", c.form["disable_web_page_preview"])
		assert.Equal(t, "true", c.form["disable_notification"])
	}
}

func TestSendDocument(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	s := newTestSender(t, api)

	err := s.Send(t.Context(), model.Delivery{
		ChatIDs: []int64{10},
		Report: model.Report{
			Text:       "crashed",
			Attachment: &model.Attachment{Filename: "report.txt", Data: []byte("traceback")},
		},
		DisableWebPagePreview: true,
	})
	require.NoError(t, err)

	require.Len(t, api.calls, 1)
	c := api.calls[0]
	assert.Equal(t, "/bot123:abc/sendDocument", c.path)
	assert.Equal(t, "10", c.form["chat_id"])
	assert.Equal(t, "crashed", c.form["caption"])
	assert.Equal(t, "report.txt", c.file)
	assert.Equal(t, "traceback", c.data)
	assert.NotContains(t, c.form, "disable_web_page_preview")
}

func TestSendContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{failOn: "10"}
	s := newTestSender(t, api)

	err := s.Send(t.Context(), model.Delivery{
		ChatIDs: []int64{10, 20},
		Report:  model.Report{Text: "boom"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat 10")
	assert.Contains(t, err.Error(), "chat not found")
	assert.Len(t, api.calls, 2)
}

func TestSendHonoursContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
		_, _ = io.WriteString(w, okResponse)
	}))
	// Cleanups run in reverse: the handler is released before Close waits on it.
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	s := New("123:abc", srv.URL+"/bot%s/%s", srv.Client())

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := s.Send(ctx, model.Delivery{ChatIDs: []int64{1}, Report: model.Report{Text: "boom"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	s := New("t", "", nil)
	assert.Equal(t, "https://api.telegram.org/bot%s/%s", s.endpoint)
	assert.Equal(t, http.DefaultClient, s.client)
}
