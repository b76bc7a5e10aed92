package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storyboard-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBucket struct {
	uploads     map[string][]byte
	contentType string
	uploadErr   error
	signErr     error
	expires     time.Time
}

func (f *fakeBucket) Upload(_ context.Context, name, contentType string, data []byte) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	if f.uploads == nil {
		f.uploads = map[string][]byte{}
	}
	f.uploads[name] = data
	f.contentType = contentType
	return nil
}

func (f *fakeBucket) SignedURL(name string, expires time.Time) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	f.expires = expires
	return "https://signed.example/" + name + "?sig=1", nil
}

func testConfig() Config {
	return Config{
		Bucket:          "storyboard-images",
		SignedURLTTL:    87600 * time.Hour,
		DownloadTimeout: time.Second,
		UploadTimeout:   time.Second,
		ConnectTimeout:  time.Second,
	}
}

func imageServer(t *testing.T, status int, body string, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPersist_Success(t *testing.T) {
	srv := imageServer(t, http.StatusOK, "png-bytes", 0)
	bucket := &fakeBucket{}
	store := newArtifactStore(bucket, testConfig(), zap.NewNop())
	fixedNow := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixedNow }

	url, err := store.Persist(context.Background(), srv.URL+"/tmp.png", "story_abcd1234_frame_2.png")
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/story_abcd1234_frame_2.png?sig=1", url)
	assert.Equal(t, []byte("png-bytes"), bucket.uploads["story_abcd1234_frame_2.png"])
	assert.Equal(t, "image/png", bucket.contentType)
	assert.Equal(t, fixedNow.Add(87600*time.Hour), bucket.expires)
}

func TestPersist_GeneratedNameWhenNoHint(t *testing.T) {
	srv := imageServer(t, http.StatusOK, "x", 0)
	bucket := &fakeBucket{}
	store := newArtifactStore(bucket, testConfig(), zap.NewNop())

	_, err := store.Persist(context.Background(), srv.URL, "")
	require.NoError(t, err)
	require.Len(t, bucket.uploads, 1)
	for name := range bucket.uploads {
		assert.Regexp(t, `^storyboard_[0-9a-f-]{36}\.png$`, name)
	}
}

func TestPersist_DownloadFailures(t *testing.T) {
	cfg := testConfig()
	cfg.DownloadTimeout = 50 * time.Millisecond

	cases := map[string]*httptest.Server{
		"bad status": imageServer(t, http.StatusNotFound, "", 0),
		"timeout":    imageServer(t, http.StatusOK, "late", time.Second),
	}
	for name, srv := range cases {
		t.Run(name, func(t *testing.T) {
			bucket := &fakeBucket{}
			store := newArtifactStore(bucket, cfg, zap.NewNop())

			_, err := store.Persist(context.Background(), srv.URL, "a.png")
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrStorageFailed)
			assert.Empty(t, bucket.uploads)
		})
	}
}

func TestPersist_UploadAndSignFailures(t *testing.T) {
	srv := imageServer(t, http.StatusOK, "png", 0)

	store := newArtifactStore(&fakeBucket{uploadErr: errors.New("denied")}, testConfig(), zap.NewNop())
	_, err := store.Persist(context.Background(), srv.URL, "a.png")
	assert.ErrorIs(t, err, models.ErrStorageFailed)

	store = newArtifactStore(&fakeBucket{signErr: errors.New("no key")}, testConfig(), zap.NewNop())
	_, err = store.Persist(context.Background(), srv.URL, "a.png")
	assert.ErrorIs(t, err, models.ErrStorageFailed)
}
