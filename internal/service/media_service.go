package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/repository"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const maxUploadBytes = 1 << 30

var allowedTypes = map[string]string{
	"jpg":  models.MediaTypeImage,
	"png":  models.MediaTypeImage,
	"mp4":  models.MediaTypeVideo,
	"mov":  models.MediaTypeVideo,
	"webp": models.MediaTypeImage,
}

// MediaUpload carries what the client knows about an upload that cannot be
// read from the bytes cheaply.
type MediaUpload struct {
	DurationSeconds float64
	Width           int
	Height          int
}

type MediaService interface {
	Upload(ctx context.Context, userID int64, file *multipart.FileHeader, meta MediaUpload) (*models.MediaAsset, error)
	Get(ctx context.Context, userID, assetID int64) (*models.MediaAsset, error)
}

type mediaService struct {
	ma    repository.MediaAssetRepository
	store ObjectStore
}

func NewMediaService(ma repository.MediaAssetRepository, store ObjectStore) MediaService {
	return &mediaService{ma: ma, store: store}
}

func (s *mediaService) Upload(ctx context.Context, userID int64, file *multipart.FileHeader, meta MediaUpload) (*models.MediaAsset, error) {
	if userID == 0 {
		return nil, ErrInvalidUserID
	}
	if file.Size > maxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidInput, maxUploadBytes)
	}

	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}

	asset, err := describe(data, meta)
	if err != nil {
		return nil, err
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	key := fmt.Sprintf("%d/%s.%s", userID, id, asset.FileName)

	url, err := s.store.Put(ctx, key, data, asset.FileType)
	if err != nil {
		return nil, fmt.Errorf("error uploading file: %w", err)
	}

	asset.UserID = userID
	asset.FileName = file.Filename
	asset.FileURL = url
	asset.FileSize = int64(len(data))

	assetID, err := s.ma.Create(ctx, nil, asset)
	if err != nil {
		return nil, fmt.Errorf("error saving media: %w", err)
	}
	asset.ID = assetID
	return asset, nil
}

// describe sniffs the content type and reads image dimensions. The returned
// asset carries the detected extension in FileName.
func describe(data []byte, meta MediaUpload) (*models.MediaAsset, error) {
	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return nil, fmt.Errorf("%w: unsupported file type", ErrInvalidInput)
	}
	mediaType, ok := allowedTypes[kind.Extension]
	if !ok {
		return nil, fmt.Errorf("%w: file type %s is not allowed", ErrInvalidInput, kind.Extension)
	}

	asset := &models.MediaAsset{
		FileName:        kind.Extension,
		FileType:        kind.MIME.Value,
		MediaType:       mediaType,
		Width:           meta.Width,
		Height:          meta.Height,
		DurationSeconds: meta.DurationSeconds,
	}
	if mediaType == models.MediaTypeImage {
		asset.DurationSeconds = 0
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			asset.Width, asset.Height = cfg.Width, cfg.Height
		}
	}
	return asset, nil
}

func (s *mediaService) Get(ctx context.Context, userID, assetID int64) (*models.MediaAsset, error) {
	asset, err := s.ma.GetByID(ctx, assetID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && asset.UserID != userID) {
		return nil, fmt.Errorf("media %d: %w", assetID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return asset, nil
}
