package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"
	"carrental-backend/internal/storage"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type imageStorageService struct {
	vehicleRepo  repository.VehicleRepository
	store        storage.ImageStore
	allowedTypes map[string]bool
	maxBytes     int64
}

// NewImageStorageService stores vehicle photos. maxBytes limits a single upload.
func NewImageStorageService(vehicleRepo repository.VehicleRepository, store storage.ImageStore, allowedTypes []string, maxBytes int64) ImageStorageService {
	allowed := make(map[string]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[t] = true
	}
	return &imageStorageService{
		vehicleRepo:  vehicleRepo,
		store:        store,
		allowedTypes: allowed,
		maxBytes:     maxBytes,
	}
}

func (s *imageStorageService) UploadImage(ctx context.Context, vehicleID int32, contentType string, body io.Reader) (*domain.Vehicle, error) {
	logger.EnterMethod("imageStorageService.UploadImage", "vehicleID", vehicleID, "contentType", contentType)

	ext, ok := imageExtensions[contentType]
	if !ok || !s.allowedTypes[contentType] {
		err := domain.NewValidationError(fmt.Sprintf("unsupported image type %q", contentType))
		logger.ExitMethodWithError("imageStorageService.UploadImage", err)
		return nil, err
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, vehicleID)
	if err != nil {
		logger.ExitMethodWithError("imageStorageService.UploadImage", err, "vehicleID", vehicleID)
		return nil, fmt.Errorf("failed to load vehicle: %w", err)
	}

	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		logger.ExitMethodWithError("imageStorageService.UploadImage", err)
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		err := domain.NewValidationError(fmt.Sprintf("image exceeds %d bytes", s.maxBytes))
		logger.ExitMethodWithError("imageStorageService.UploadImage", err)
		return nil, err
	}
	if len(data) == 0 {
		err := domain.NewValidationError("image is empty")
		logger.ExitMethodWithError("imageStorageService.UploadImage", err)
		return nil, err
	}

	key, err := s.store.Save(ctx, ext, bytes.NewReader(data))
	if err != nil {
		logger.ExitMethodWithError("imageStorageService.UploadImage", err)
		return nil, fmt.Errorf("failed to save image file: %w", err)
	}
	if err := s.vehicleRepo.UpdateImage(ctx, vehicleID, key); err != nil {
		_ = s.store.Delete(ctx, key)
		logger.ExitMethodWithError("imageStorageService.UploadImage", err)
		return nil, fmt.Errorf("failed to save image metadata: %w", err)
	}

	if old := vehicle.ImageKey; old != "" {
		if err := s.store.Delete(ctx, old); err != nil {
			logger.Warn("Failed to delete replaced image", "key", old, "error", err)
		}
	}
	vehicle.ImageKey = key

	logger.ExitMethod("imageStorageService.UploadImage", "vehicleID", vehicleID, "key", key, "size", len(data))
	return vehicle, nil
}

func (s *imageStorageService) OpenImage(ctx context.Context, key string) (io.ReadCloser, string, error) {
	rc, err := s.store.Open(ctx, key)
	if err != nil {
		return nil, "", err
	}
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return rc, contentType, nil
}
