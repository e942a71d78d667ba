package notification

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/dedup/pkg/config"
	"github.com/autobrr/dedup/pkg/grouping"
	"github.com/autobrr/dedup/pkg/hardlink"
)

type webhook struct {
	mu       sync.Mutex
	messages []DiscordMessage
	status   int
}

func (w *webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	var msg DiscordMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		rw.WriteHeader(http.StatusBadRequest)
		return
	}

	w.mu.Lock()
	w.messages = append(w.messages, msg)
	w.mu.Unlock()

	if w.status != 0 {
		rw.WriteHeader(w.status)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func newSender(t *testing.T, hook *webhook, cfg config.NotificationsConfig) Sender {
	t.Helper()
	srv := httptest.NewServer(hook)
	t.Cleanup(srv.Close)

	cfg.Service.Discord = srv.URL
	return NewDiscordSender(logrus.NewEntry(logrus.New()), cfg)
}

func TestDiscordSender_CanSend(t *testing.T) {
	log := logrus.NewEntry(logrus.New())
	assert.False(t, NewDiscordSender(log, config.NotificationsConfig{}).CanSend())
	assert.True(t, NewDiscordSender(log, config.NotificationsConfig{
		Service: config.NotificationService{Discord: "https://example.invalid"},
	}).CanSend())
}

func TestDiscordSender_Summary(t *testing.T) {
	hook := &webhook{}
	sender := newSender(t, hook, config.NotificationsConfig{})

	field := sender.BuildField(ActionDuplicates, BuildOptions{
		Group: grouping.DuplicateGroup{Size: 1024, Files: []string{"/b/x", "/a"}},
	})

	require.NoError(t, sender.Send("Duplicates", "Linked **1** files", time.Second, []Field{field}, true))

	require.Len(t, hook.messages, 1)
	require.Len(t, hook.messages[0].Embeds, 1)
	embed := hook.messages[0].Embeds[0]
	assert.Equal(t, "Duplicates (Dry Run)", embed.Title)
	assert.Equal(t, "Linked **1** files", embed.Description)
	assert.Contains(t, embed.Footer.Text, "Progress: 0/1")
}

func TestDiscordSender_Detailed(t *testing.T) {
	hook := &webhook{}
	sender := newSender(t, hook, config.NotificationsConfig{Detailed: true})

	fields := []Field{
		sender.BuildField(ActionDuplicates, BuildOptions{
			Group: grouping.DuplicateGroup{Size: 2048, Files: []string{"/long/copy", "/orig"}},
		}),
		sender.BuildField(ActionLinkFailure, BuildOptions{
			Failure: hardlink.Failure{Path: "/ro/copy", Err: "permission denied"},
		}),
	}

	require.NoError(t, sender.Send("Duplicates", "summary", time.Second, fields, false))

	require.Len(t, hook.messages, 1)
	embeds := hook.messages[0].Embeds
	require.Len(t, embeds, 3)

	assert.Equal(t, "**/orig (2.0 KiB)**", embeds[0].Description)
	require.Len(t, embeds[0].Fields, 3)
	assert.Equal(t, "2", embeds[0].Fields[0].Value)
	assert.Equal(t, "2.0 KiB", embeds[0].Fields[1].Value)
	assert.Equal(t, "/long/copy", embeds[0].Fields[2].Value)

	require.Len(t, embeds[1].Fields, 2)
	assert.Equal(t, "/ro/copy", embeds[1].Fields[0].Value)
	assert.Equal(t, "permission denied", embeds[1].Fields[1].Value)

	assert.Equal(t, "Duplicates - Summary", embeds[2].Title)
}

func TestDiscordSender_SkipEmptyRun(t *testing.T) {
	hook := &webhook{}
	sender := newSender(t, hook, config.NotificationsConfig{SkipEmptyRun: true})

	require.NoError(t, sender.Send("Duplicates", "nothing", time.Second, nil, false))
	assert.Empty(t, hook.messages)
}

func TestDiscordSender_Batches(t *testing.T) {
	hook := &webhook{}
	sender := newSender(t, hook, config.NotificationsConfig{Detailed: true})

	var fields []Field
	for i := 0; i < 12; i++ {
		fields = append(fields, sender.BuildField(ActionLinkFailure, BuildOptions{
			Failure: hardlink.Failure{Path: "/p", Err: "boom"},
		}))
	}

	require.NoError(t, sender.Send("Duplicates", "summary", time.Second, fields, false))

	total := 0
	for _, m := range hook.messages {
		assert.LessOrEqual(t, len(m.Embeds), maxEmbedsPerMessage)
		total += len(m.Embeds)
	}
	assert.Equal(t, 13, total)
	assert.GreaterOrEqual(t, len(hook.messages), 2)
}

func TestDiscordSender_UnexpectedStatus(t *testing.T) {
	hook := &webhook{status: http.StatusBadRequest}
	sender := newSender(t, hook, config.NotificationsConfig{})

	err := sender.Send("Duplicates", "summary", time.Second, nil, false)
	assert.Error(t, err)
}

func TestDiscordSender_TooManyFieldsSendsSummaryOnly(t *testing.T) {
	hook := &webhook{}
	sender := newSender(t, hook, config.NotificationsConfig{Detailed: true})

	fields := make([]Field, maxTotalFields+1)
	for i := range fields {
		fields[i] = sender.BuildField(ActionLinkFailure, BuildOptions{
			Failure: hardlink.Failure{Path: "/p", Err: "boom"},
		})
	}

	require.NoError(t, sender.Send("Duplicates", "summary", time.Second, fields, false))
	require.Len(t, hook.messages, 1)
	require.Len(t, hook.messages[0].Embeds, 1)
	assert.Equal(t, "summary", hook.messages[0].Embeds[0].Description)
}
