package service

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-admin/internal/models"
	"github.com/noah-isme/academy-admin/pkg/jobs"
	"github.com/noah-isme/academy-admin/pkg/storage"
	appErrors "github.com/noah-isme/academy-admin/pkg/errors"
)

func newUploadFixture(t *testing.T, max int64) (*UploadService, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	svc := NewUploadService(store, storage.NewSignedURLSigner("secret", time.Hour), NewMetricsService(), nil,
		UploadConfig{MaxFileSizeBytes: max}, jobs.QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond})
	svc.now = func() time.Time { return time.UnixMilli(1714550400000) }
	return svc, dir
}

func TestUploadStoresTimestampedPDF(t *testing.T) {
	svc, dir := newUploadFixture(t, 1024)

	result, err := svc.Upload("Course Syllabus.pdf", "application/pdf", 8, strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "1714550400000_Course_Syllabus.pdf", result.Name)
	assert.Equal(t, "/uploads/1714550400000_Course_Syllabus.pdf", result.Path)
	assert.True(t, strings.HasPrefix(result.SignedURL, "/uploads/signed/"))
	assert.FileExists(t, filepath.Join(dir, result.Name))

	file, name, err := svc.OpenSigned(strings.TrimPrefix(result.SignedURL, "/uploads/signed/"))
	require.NoError(t, err)
	defer file.Close()
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, result.Name, name)
	assert.Equal(t, "%PDF-1.4", string(body))
}

func TestUploadRejectsNonPDF(t *testing.T) {
	svc, _ := newUploadFixture(t, 1024)

	_, err := svc.Upload("notes.docx", "application/msword", 4, strings.NewReader("data"))
	require.Error(t, err)
	assert.Equal(t, "Please select a PDF file", appErrors.FromError(err).Message)

	_, err = svc.Upload("scan", "application/pdf; charset=binary", 4, strings.NewReader("data"))
	assert.NoError(t, err)
}

func TestUploadRejectsOversizedFiles(t *testing.T) {
	svc, dir := newUploadFixture(t, 10*1024*1024)

	_, err := svc.Upload("big.pdf", "application/pdf", 11*1024*1024, bytes.NewReader(nil))
	require.Error(t, err)
	assert.Equal(t, "File size must be less than 10MB", appErrors.FromError(err).Message)

	small, _ := newUploadFixture(t, 4)
	_, err = small.Upload("lying.pdf", "application/pdf", 1, strings.NewReader("%PDF-1.4"))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrPayloadTooLarge.Code))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpenSignedRejectsBadTokens(t *testing.T) {
	svc, _ := newUploadFixture(t, 1024)

	_, _, err := svc.OpenSigned("garbage")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))
}

func TestScheduleCleanupRemovesLocalPDF(t *testing.T) {
	svc, dir := newUploadFixture(t, 1024)
	svc.Start(context.Background())
	defer svc.Stop()

	result, err := svc.Upload("doc.pdf", "application/pdf", 3, strings.NewReader("pdf"))
	require.NoError(t, err)

	svc.ScheduleCleanup(models.Item{ID: "i1", Type: models.ItemTypeYouTube, FilePath: result.Path})
	svc.ScheduleCleanup(models.Item{ID: "i2", Type: models.ItemTypePDF, FilePath: "https://cdn.example.com/doc.pdf"})
	time.Sleep(20 * time.Millisecond)
	assert.FileExists(t, filepath.Join(dir, result.Name))

	svc.ScheduleCleanup(models.Item{ID: "i3", Type: models.ItemTypePDF, FilePath: result.Path})
	require.Eventually(t, func() bool {
		_, statErr := os.Stat(filepath.Join(dir, result.Name))
		return os.IsNotExist(statErr)
	}, time.Second, 5*time.Millisecond)
}

func TestScheduleReplacedRemovesAbandonedPDF(t *testing.T) {
	svc, dir := newUploadFixture(t, 1024)
	svc.Start(context.Background())
	defer svc.Stop()

	result, err := svc.Upload("notes.pdf", "application/pdf", 3, strings.NewReader("pdf"))
	require.NoError(t, err)
	previous := models.Item{ID: "i1", Type: models.ItemTypePDF, FilePath: result.Path}

	svc.ScheduleReplaced(previous, previous)
	time.Sleep(20 * time.Millisecond)
	assert.FileExists(t, filepath.Join(dir, result.Name))

	svc.ScheduleReplaced(previous, models.Item{ID: "i1", Type: models.ItemTypeYouTube, YouTubeURL: "https://youtu.be/abc"})
	require.Eventually(t, func() bool {
		_, statErr := os.Stat(filepath.Join(dir, result.Name))
		return os.IsNotExist(statErr)
	}, time.Second, 5*time.Millisecond)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report_2024_.pdf", sanitizeFilename("report (2024).pdf"))
	assert.Equal(t, "passwd", sanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "evil.pdf", sanitizeFilename(`C:\temp\evil.pdf`))
	assert.Equal(t, "document.pdf", sanitizeFilename("..."))
}
