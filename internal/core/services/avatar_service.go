package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"stockvel-tracker/internal/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ErrAvatarStorageDisabled is returned when no image storage is configured
var ErrAvatarStorageDisabled = errors.New("avatar storage is not configured")

const (
	avatarUploadTimeout = 60 * time.Second
	avatarDeleteTimeout = 30 * time.Second
)

// CloudinaryAvatarStore stores avatars in a Cloudinary folder
type CloudinaryAvatarStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewAvatarStore returns a Cloudinary-backed store, or a disabled store when
// credentials are missing
func NewAvatarStore(cfg config.CloudinaryConfig) (AvatarStore, error) {
	if !cfg.Enabled() {
		log.Println("⚠️ Cloudinary not configured, avatar uploads disabled")
		return disabledAvatarStore{}, nil
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config error: %w", err)
	}
	return &CloudinaryAvatarStore{cld: cld, folder: cfg.Folder}, nil
}

// Upload stores the image under the member number, replacing any previous one
func (s *CloudinaryAvatarStore) Upload(ctx context.Context, file io.Reader, memberNo string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, avatarUploadTimeout)
	defer cancel()

	overwrite := true
	resp, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:    s.folder,
		PublicID:  memberNo,
		Overwrite: &overwrite,
	})
	if err != nil {
		return "", "", fmt.Errorf("upload error: %w", err)
	}
	if resp.Error.Message != "" {
		return "", "", fmt.Errorf("upload error: %s", resp.Error.Message)
	}

	return resp.SecureURL, resp.PublicID, nil
}

// Delete removes a previously uploaded image
func (s *CloudinaryAvatarStore) Delete(ctx context.Context, publicID string) error {
	ctx, cancel := context.WithTimeout(ctx, avatarDeleteTimeout)
	defer cancel()

	if _, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID}); err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	return nil
}

type disabledAvatarStore struct{}

func (disabledAvatarStore) Upload(context.Context, io.Reader, string) (string, string, error) {
	return "", "", ErrAvatarStorageDisabled
}

func (disabledAvatarStore) Delete(context.Context, string) error {
	return nil
}
