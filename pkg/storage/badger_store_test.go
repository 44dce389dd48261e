package storage

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"company-crawler/pkg/models"
)

func testEntry() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func newTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	store, err := NewHistoryStore(context.Background(), t.TempDir(), testEntry())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetPage_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, found, err := store.GetPage("acme", models.SectionAbout)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPutGetPage_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	entry := models.PageHistoryEntry{
		SourceURL:     "https://acme.example/about",
		ContentSHA256: "abc123",
		ContentLength: 4096,
		HTTPStatus:    200,
		CrawledAt:     time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.PutPage("acme", models.SectionAbout, entry))

	got, found, err := store.GetPage("acme", models.SectionAbout)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entry, got)
}

func TestPutPage_Overwrites(t *testing.T) {
	store := newTestStore(t)
	first := models.PageHistoryEntry{ContentSHA256: "old", ContentLength: 1}
	second := models.PageHistoryEntry{ContentSHA256: "new", ContentLength: 2}

	require.NoError(t, store.PutPage("acme", models.SectionBlog, first))
	require.NoError(t, store.PutPage("acme", models.SectionBlog, second))

	got, found, err := store.GetPage("acme", models.SectionBlog)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "new", got.ContentSHA256)
}

func TestPageKey_IsolatesCompaniesAndSections(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutPage("acme", models.SectionAbout, models.PageHistoryEntry{ContentSHA256: "a"}))
	require.NoError(t, store.PutPage("acme", models.SectionBlog, models.PageHistoryEntry{ContentSHA256: "b"}))
	require.NoError(t, store.PutPage("beta", models.SectionAbout, models.PageHistoryEntry{ContentSHA256: "c"}))

	got, found, err := store.GetPage("acme", models.SectionAbout)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "a", got.ContentSHA256)

	_, found, err = store.GetPage("beta", models.SectionBlog)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRunGC_StopsOnCancelBeforeClose(t *testing.T) {
	store, err := NewHistoryStore(context.Background(), t.TempDir(), testEntry())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.RunGC(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunGC did not return after context cancellation")
	}
	// Closing after the GC loop has drained must not race a GC cycle.
	require.NoError(t, store.Close())
}

func TestHistorySurvivesReopen(t *testing.T) {
	stateDir := t.TempDir()
	store, err := NewHistoryStore(context.Background(), stateDir, testEntry())
	require.NoError(t, err)
	require.NoError(t, store.PutPage("acme", models.SectionHomepage, models.PageHistoryEntry{ContentSHA256: "persisted"}))
	require.NoError(t, store.Close())

	reopened, err := NewHistoryStore(context.Background(), stateDir, testEntry())
	require.NoError(t, err)
	defer reopened.Close()

	got, found, err := reopened.GetPage("acme", models.SectionHomepage)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "persisted", got.ContentSHA256)
}
