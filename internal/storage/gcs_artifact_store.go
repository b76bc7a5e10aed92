package storage

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"storyboard-server/internal/interfaces"
	"storyboard-server/internal/models"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// maxImageBytes ограничивает размер скачиваемого изображения.
const maxImageBytes = 32 << 20

const imageContentType = "image/png"

// Config - параметры хранилища артефактов.
type Config struct {
	Bucket          string
	CredentialsFile string
	SignedURLTTL    time.Duration
	DownloadTimeout time.Duration
	UploadTimeout   time.Duration
	ConnectTimeout  time.Duration
}

// blobBucket - операции с бакетом, нужные хранилищу.
type blobBucket interface {
	Upload(ctx context.Context, name, contentType string, data []byte) error
	SignedURL(name string, expires time.Time) (string, error)
}

// gcsBucket - реализация blobBucket поверх Cloud Storage.
type gcsBucket struct {
	handle *gcs.BucketHandle
}

func (b *gcsBucket) Upload(ctx context.Context, name, contentType string, data []byte) error {
	w := b.handle.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (b *gcsBucket) SignedURL(name string, expires time.Time) (string, error) {
	return b.handle.SignedURL(name, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV2,
		Method:  http.MethodGet,
		Expires: expires,
	})
}

// Compile-time check
var _ interfaces.ArtifactStore = (*gcsArtifactStore)(nil)

type gcsArtifactStore struct {
	bucket     blobBucket
	httpClient *http.Client
	cfg        Config
	now        func() time.Time
	logger     *zap.Logger
}

// NewGCSArtifactStore инициализирует Firebase App и бакет Cloud Storage.
func NewGCSArtifactStore(ctx context.Context, cfg Config, logger *zap.Logger) (interfaces.ArtifactStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: cfg.Bucket}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage client: %w", err)
	}
	handle, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", cfg.Bucket, err)
	}

	logger.Info("Artifact store initialized", zap.String("bucket", cfg.Bucket))
	return newArtifactStore(&gcsBucket{handle: handle}, cfg, logger), nil
}

func newArtifactStore(bucket blobBucket, cfg Config, logger *zap.Logger) *gcsArtifactStore {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = cfg.ConnectTimeout

	return &gcsArtifactStore{
		bucket:     bucket,
		httpClient: &http.Client{Transport: transport},
		cfg:        cfg,
		now:        time.Now,
		logger:     logger.Named("ArtifactStore"),
	}
}

// Persist скачивает изображение и сохраняет его в приватный бакет.
func (s *gcsArtifactStore) Persist(ctx context.Context, sourceURL, nameHint string) (string, error) {
	name := nameHint
	if name == "" {
		name = fmt.Sprintf("storyboard_%s.png", uuid.NewString())
	}
	log := s.logger.With(zap.String("object", name))

	data, err := s.download(ctx, sourceURL)
	if err != nil {
		log.Error("Failed to download generated image", zap.Error(err))
		return "", fmt.Errorf("%w: download failed: %v", models.ErrStorageFailed, err)
	}

	uploadCtx, cancel := context.WithTimeout(ctx, s.cfg.UploadTimeout)
	defer cancel()
	if err := s.bucket.Upload(uploadCtx, name, imageContentType, data); err != nil {
		log.Error("Failed to upload image to bucket", zap.Error(err))
		return "", fmt.Errorf("%w: upload failed: %v", models.ErrStorageFailed, err)
	}

	signed, err := s.bucket.SignedURL(name, s.now().Add(s.cfg.SignedURLTTL))
	if err != nil {
		log.Error("Failed to sign object URL", zap.Error(err))
		return "", fmt.Errorf("%w: signing failed: %v", models.ErrStorageFailed, err)
	}

	log.Info("Image persisted", zap.Int("bytes", len(data)))
	return signed, nil
}

func (s *gcsArtifactStore) download(ctx context.Context, sourceURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	return data, nil
}
