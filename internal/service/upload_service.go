package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin/internal/models"
	"github.com/noah-isme/academy-admin/pkg/jobs"
	"github.com/noah-isme/academy-admin/pkg/storage"
	appErrors "github.com/noah-isme/academy-admin/pkg/errors"
)

// MsgUploadSuccess is shown after a PDF is stored.
const MsgUploadSuccess = "File uploaded successfully!"

const signedDownloadPrefix = "/uploads/signed/"

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type uploadStorage interface {
	Save(name string, r io.Reader, limit int64) (int64, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
}

// UploadConfig tunes upload validation.
type UploadConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// UploadResult describes a stored PDF.
type UploadResult struct {
	Name      string    `json:"name"`
	Path      string    `json:"filePath"`
	Size      int64     `json:"size"`
	SignedURL string    `json:"signedUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UploadService stores item PDFs, issues signed preview links and removes
// files orphaned by item deletion.
type UploadService struct {
	storage uploadStorage
	signer  *storage.SignedURLSigner
	cleanup *jobs.Queue[string]
	metrics *MetricsService
	logger  *zap.Logger
	cfg     UploadConfig
	now     func() time.Time
}

// NewUploadService constructs the service. cleanupCfg configures the removal queue.
func NewUploadService(store uploadStorage, signer *storage.SignedURLSigner, metrics *MetricsService, logger *zap.Logger, cfg UploadConfig, cleanupCfg jobs.QueueConfig) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 10 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf"}
	}
	svc := &UploadService{storage: store, signer: signer, metrics: metrics, logger: logger, cfg: cfg, now: time.Now}
	if cleanupCfg.Logger == nil {
		cleanupCfg.Logger = logger
	}
	cleanupCfg.OnExhausted = func(string, error) { metrics.RecordCleanup(false) }
	svc.cleanup = jobs.NewQueue[string]("upload-cleanup", svc.removeOrphan, cleanupCfg)
	return svc
}

// Start runs the cleanup workers until ctx is cancelled or Stop is called.
func (s *UploadService) Start(ctx context.Context) {
	s.cleanup.Start(ctx)
}

// Stop halts the cleanup workers.
func (s *UploadService) Stop() {
	s.cleanup.Stop()
}

// Upload validates and stores a PDF as <unix-ms>_<name>.
func (s *UploadService) Upload(filename, contentType string, size int64, r io.Reader) (*UploadResult, error) {
	if !s.isPDF(filename, contentType) {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedMedia, "")
	}
	if size > s.cfg.MaxFileSizeBytes {
		return nil, s.tooLarge()
	}

	name := fmt.Sprintf("%d_%s", s.now().UnixMilli(), sanitizeFilename(filename))
	written, err := s.storage.Save(name, r, s.cfg.MaxFileSizeBytes)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, s.tooLarge()
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
	}
	s.metrics.ObserveUpload(written)

	result := &UploadResult{Name: name, Path: storage.PublicPath(name), Size: written}
	if s.signer != nil {
		token, expiresAt, err := s.signer.Generate(name)
		if err != nil {
			s.logger.Warn("failed to sign upload link", zap.String("name", name), zap.Error(err))
		} else {
			result.SignedURL = signedDownloadPrefix + token
			result.ExpiresAt = expiresAt
		}
	}
	s.logger.Info("upload stored", zap.String("name", name), zap.Int64("size", written))
	return result, nil
}

// OpenSigned resolves a signed token to the stored file.
func (s *UploadService) OpenSigned(token string) (*os.File, string, error) {
	if s.signer == nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "File not found")
	}
	name, _, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrForbidden, "Download link expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "Invalid download link")
	}
	file, err := s.storage.Open(name)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "File not found")
	}
	return file, name, nil
}

// ScheduleCleanup queues removal of the local PDF referenced by a deleted item.
// Items pointing elsewhere are ignored.
func (s *UploadService) ScheduleCleanup(item models.Item) {
	if item.Type != models.ItemTypePDF {
		return
	}
	name, ok := storage.NameFromPublicPath(item.FilePath)
	if !ok {
		return
	}
	if err := s.cleanup.Enqueue(uuid.NewString(), name); err != nil {
		s.logger.Warn("failed to schedule upload cleanup", zap.String("item_id", item.ID), zap.String("name", name), zap.Error(err))
	}
}

// ScheduleReplaced queues the upload of previous once an update leaves it
// unreferenced, either by switching type or by pointing at another file.
func (s *UploadService) ScheduleReplaced(previous, current models.Item) {
	if current.Type == models.ItemTypePDF && current.FilePath == previous.FilePath {
		return
	}
	s.ScheduleCleanup(previous)
}

func (s *UploadService) removeOrphan(_ context.Context, task jobs.Task[string]) error {
	if err := s.storage.Delete(task.Value); err != nil {
		return err
	}
	s.metrics.RecordCleanup(true)
	s.logger.Info("orphaned upload removed", zap.String("name", task.Value))
	return nil
}

func (s *UploadService) isPDF(filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return true
	}
	mediaType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	for _, allowed := range s.cfg.AllowedMIMEs {
		if strings.EqualFold(mediaType, allowed) {
			return true
		}
	}
	return false
}

func (s *UploadService) tooLarge() error {
	return appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("File size must be less than %dMB", s.cfg.MaxFileSizeBytes/(1024*1024)))
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Trim(unsafeNameChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		return "document.pdf"
	}
	return base
}
