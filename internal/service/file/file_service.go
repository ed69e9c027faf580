// Package filesvc implements the two-phase upload lifecycle: the File
// row is written when the upload is offered, a FileUpload row and a
// .part temp file exist while uploading, and finalize renames the temp
// file into storage and deletes the FileUpload row.
// Grounded on the original FileService's eight operations.
package filesvc

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"duplexchat/internal/models"
	"duplexchat/internal/store"
)

var (
	ErrInvalidInput     = errors.New("filesvc: file_name, file_size, and recipients are required")
	ErrNotFound         = errors.New("filesvc: upload not found")
	ErrFileNotFound     = errors.New("filesvc: file not found")
	ErrUploaderMismatch = errors.New("filesvc: uploader mismatch")
	ErrOffsetMismatch   = errors.New("filesvc: offset mismatch")
	ErrChunkOverrun     = errors.New("filesvc: chunk exceeds file size")
	ErrIncomplete       = errors.New("filesvc: file not fully uploaded")
	ErrChecksumMismatch = errors.New("filesvc: sha256 mismatch")
	ErrStillUploading   = errors.New("filesvc: file is still uploading")
	ErrNoPermission     = errors.New("filesvc: no permission to download")
	ErrOffsetOutOfRange = errors.New("filesvc: offset out of range")
)

// Offer is the caller's request to start an upload.
type Offer struct {
	UploaderID       string
	UploaderNickname string
	ConversationType models.ConversationType
	ConversationID   string
	FileName         string
	FileSize         int64
	SHA256           string
	Recipients       []string
}

// UploadInfo is the live state of an in-progress upload.
type UploadInfo struct {
	FileID           string
	ConversationType models.ConversationType
	ConversationID   string
	FileName         string
	FileSize         int64
	SHA256           string
	UploaderID       string
	UploaderNickname string
	StoragePath      string
	TempPath         string
	UploadedSize     int64
	CreatedAt        time.Time
}

// Service is the file collaborator named in spec.md §4.8. It owns a
// data directory on the local filesystem in addition to the store.
type Service struct {
	db        *gorm.DB
	filesDir  string
	tempDir   string
	chunkSize int
}

// NewService creates the files/ and tmp/ subdirectories under dataDir
// if they don't already exist.
func NewService(db *gorm.DB, dataDir string, chunkSize int) (*Service, error) {
	s := &Service{
		db:        db,
		filesDir:  filepath.Join(dataDir, "files"),
		tempDir:   filepath.Join(dataDir, "tmp"),
		chunkSize: chunkSize,
	}
	if err := os.MkdirAll(s.filesDir, 0o755); err != nil {
		return nil, fmt.Errorf("filesvc: create files dir: %w", err)
	}
	if err := os.MkdirAll(s.tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("filesvc: create temp dir: %w", err)
	}
	return s, nil
}

// ChunkSize is the read-back chunk size used by ReadChunk.
func (s *Service) ChunkSize() int {
	return s.chunkSize
}

// CreateUpload allocates a file_id, a storage path, and a temp path,
// and writes the File + FileUpload + FileTarget rows in one
// transaction.
func (s *Service) CreateUpload(offer Offer) (*UploadInfo, error) {
	if offer.FileSize <= 0 || offer.FileName == "" || len(offer.Recipients) == 0 {
		return nil, ErrInvalidInput
	}

	fileID, err := newFileID()
	if err != nil {
		return nil, err
	}
	safeName := sanitizeFileName(offer.FileName)
	storagePath := filepath.Join(s.filesDir, fileID+"_"+safeName)
	tempPath := filepath.Join(s.tempDir, fileID+".part")

	unique := dedupe(offer.Recipients)

	file := models.File{
		FileID:           fileID,
		UploaderID:       offer.UploaderID,
		UploaderNickname: offer.UploaderNickname,
		ConversationType: offer.ConversationType,
		ConversationID:   offer.ConversationID,
		FileName:         offer.FileName,
		FileSize:         offer.FileSize,
		SHA256:           offer.SHA256,
		StoragePath:      storagePath,
	}
	upload := models.FileUpload{
		FileID:       fileID,
		UploaderID:   offer.UploaderID,
		TempPath:     tempPath,
		UploadedSize: 0,
	}

	err = store.Transact(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(&file).Error; err != nil {
			return err
		}
		if err := tx.Create(&upload).Error; err != nil {
			return err
		}
		targets := make([]models.FileTarget, 0, len(unique))
		for _, userID := range unique {
			targets = append(targets, models.FileTarget{FileID: fileID, UserID: userID})
		}
		return tx.Create(&targets).Error
	})
	if err != nil {
		return nil, err
	}

	return &UploadInfo{
		FileID:           fileID,
		ConversationType: offer.ConversationType,
		ConversationID:   offer.ConversationID,
		FileName:         offer.FileName,
		FileSize:         offer.FileSize,
		SHA256:           offer.SHA256,
		UploaderID:       offer.UploaderID,
		UploaderNickname: offer.UploaderNickname,
		StoragePath:      storagePath,
		TempPath:         tempPath,
		UploadedSize:     0,
		CreatedAt:        file.CreatedAt,
	}, nil
}

// ResumeUpload reconciles the stored uploaded_size against the actual
// size of the temp file on disk — the disk wins when it disagrees,
// since a crash mid-write can leave the database ahead of reality.
func (s *Service) ResumeUpload(fileID, uploaderID string) (*UploadInfo, error) {
	current, err := s.getUploadInfo(fileID)
	if err != nil {
		return nil, err
	}
	if current.UploaderID != uploaderID {
		return nil, ErrUploaderMismatch
	}

	if stat, statErr := os.Stat(current.TempPath); statErr == nil {
		actualSize := stat.Size()
		if actualSize != current.UploadedSize {
			if err := s.db.Model(&models.FileUpload{}).
				Where("file_id = ?", fileID).
				Update("uploaded_size", actualSize).Error; err != nil {
				return nil, err
			}
			current.UploadedSize = actualSize
		}
	}

	return current, nil
}

// AppendChunk writes data at offset into the temp file, requiring
// offset to exactly match the current uploaded_size (no gaps, no
// overlapping writes) and the chunk to fit within the declared
// file_size.
func (s *Service) AppendChunk(fileID, uploaderID string, offset int64, data []byte) (*UploadInfo, error) {
	current, err := s.getUploadInfo(fileID)
	if err != nil {
		return nil, err
	}
	if current.UploaderID != uploaderID {
		return nil, ErrUploaderMismatch
	}
	if offset != current.UploadedSize {
		return nil, ErrOffsetMismatch
	}
	if offset+int64(len(data)) > current.FileSize {
		return nil, ErrChunkOverrun
	}

	flags := os.O_WRONLY
	if offset == 0 {
		flags |= os.O_CREATE | os.O_TRUNC
	} else {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(current.TempPath, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("filesvc: open temp file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteAt(data, offset); err != nil {
		return nil, fmt.Errorf("filesvc: write temp file: %w", err)
	}

	nextOffset := offset + int64(len(data))
	if err := s.db.Model(&models.FileUpload{}).
		Where("file_id = ?", fileID).
		Update("uploaded_size", nextOffset).Error; err != nil {
		return nil, err
	}

	current.UploadedSize = nextOffset
	return current, nil
}

// FinalizeUpload verifies the completed temp file's checksum, moves
// it into storage, and deletes the FileUpload row — the transition
// out of the "uploading" phase spec.md §4.8 describes.
func (s *Service) FinalizeUpload(fileID, uploaderID string) (*models.File, error) {
	current, err := s.getUploadInfo(fileID)
	if err != nil {
		return nil, err
	}
	if current.UploaderID != uploaderID {
		return nil, ErrUploaderMismatch
	}
	if current.UploadedSize != current.FileSize {
		return nil, ErrIncomplete
	}

	computed, err := sha256File(current.TempPath)
	if err != nil {
		return nil, err
	}
	if computed != current.SHA256 {
		return nil, ErrChecksumMismatch
	}

	if err := os.Rename(current.TempPath, current.StoragePath); err != nil {
		return nil, fmt.Errorf("filesvc: move file to storage: %w", err)
	}

	if err := s.db.Where("file_id = ?", fileID).Delete(&models.FileUpload{}).Error; err != nil {
		return nil, err
	}

	var file models.File
	if err := s.db.Where("file_id = ?", fileID).First(&file).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

// Undelivered returns up to limit finalized files pending notice to
// userID, oldest first.
// The LEFT JOIN against file_uploads excludes files still uploading,
// matching the original's "u.file_id IS NULL" filter.
func (s *Service) Undelivered(userID string, limit int) ([]models.File, error) {
	var files []models.File
	err := s.db.
		Joins("JOIN file_targets ON file_targets.file_id = files.file_id").
		Joins("LEFT JOIN file_uploads ON file_uploads.file_id = files.file_id").
		Where("file_targets.user_id = ? AND file_targets.delivered_at IS NULL AND file_uploads.file_id IS NULL", userID).
		Order("files.created_at ASC").
		Limit(limit).
		Find(&files).Error
	return files, err
}

// MarkDelivered stamps delivered_at for userID's file targets.
func (s *Service) MarkDelivered(userID string, fileIDs []string) error {
	if len(fileIDs) == 0 {
		return nil
	}
	now := time.Now()
	return s.db.Model(&models.FileTarget{}).
		Where("user_id = ? AND file_id IN ?", userID, fileIDs).
		Update("delivered_at", &now).Error
}

// ReadChunk returns up to ChunkSize() bytes of a finalized file
// starting at offset, after verifying userID is a target.
func (s *Service) ReadChunk(fileID, userID string, offset int64) ([]byte, *models.File, error) {
	if err := s.requirePermission(fileID, userID); err != nil {
		return nil, nil, err
	}
	uploading, err := s.isUploading(fileID)
	if err != nil {
		return nil, nil, err
	}
	if uploading {
		return nil, nil, ErrStillUploading
	}

	var file models.File
	if err := s.db.Where("file_id = ?", fileID).First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrFileNotFound
		}
		return nil, nil, err
	}
	if offset < 0 || offset >= file.FileSize {
		return nil, nil, ErrOffsetOutOfRange
	}

	f, err := os.Open(file.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("filesvc: open file: %w", err)
	}
	defer f.Close()

	remaining := file.FileSize - offset
	toRead := int64(s.chunkSize)
	if remaining < toRead {
		toRead = remaining
	}
	buf := make([]byte, toRead)
	n, err := f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, nil, fmt.Errorf("filesvc: read file: %w", err)
	}
	return buf[:n], &file, nil
}

// ListTargets returns every user_id with a FileTarget row for fileID.
func (s *Service) ListTargets(fileID string) ([]string, error) {
	var targets []models.FileTarget
	if err := s.db.Where("file_id = ?", fileID).Find(&targets).Error; err != nil {
		return nil, err
	}
	userIDs := make([]string, 0, len(targets))
	for _, t := range targets {
		userIDs = append(userIDs, t.UserID)
	}
	return userIDs, nil
}

func (s *Service) getUploadInfo(fileID string) (*UploadInfo, error) {
	var file models.File
	var upload models.FileUpload
	if err := s.db.Where("file_id = ?", fileID).First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.db.Where("file_id = ?", fileID).First(&upload).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &UploadInfo{
		FileID:           file.FileID,
		ConversationType: file.ConversationType,
		ConversationID:   file.ConversationID,
		FileName:         file.FileName,
		FileSize:         file.FileSize,
		SHA256:           file.SHA256,
		UploaderID:       file.UploaderID,
		UploaderNickname: file.UploaderNickname,
		StoragePath:      file.StoragePath,
		TempPath:         upload.TempPath,
		UploadedSize:     upload.UploadedSize,
		CreatedAt:        file.CreatedAt,
	}, nil
}

func (s *Service) requirePermission(fileID, userID string) error {
	var count int64
	if err := s.db.Model(&models.FileTarget{}).
		Where("file_id = ? AND user_id = ?", fileID, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNoPermission
	}
	return nil
}

func (s *Service) isUploading(fileID string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.FileUpload{}).Where("file_id = ?", fileID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func newFileID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("filesvc: generate file id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func sanitizeFileName(name string) string {
	sanitized := make([]byte, 0, len(name))
	for _, ch := range []byte(name) {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '.', ch == '_', ch == '-':
			sanitized = append(sanitized, ch)
		default:
			sanitized = append(sanitized, '_')
		}
	}
	if len(sanitized) == 0 {
		return "file"
	}
	return string(sanitized)
}

func dedupe(userIDs []string) []string {
	seen := make(map[string]struct{}, len(userIDs))
	unique := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("filesvc: open temp file for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("filesvc: hash temp file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
