package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ImageStorage stores images that passed Inspect and returns their public URL.
type ImageStorage interface {
	Upload(ctx context.Context, folder string, img Image) (string, error)
}

type cloudinaryStorage struct {
	cld  *cloudinary.Cloudinary
	root string
}

func NewCloudinaryStorage(cloudName, apiKey, apiSecret, root string) (ImageStorage, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}
	cld.Config.URL.Secure = true

	return &cloudinaryStorage{cld: cld, root: strings.Trim(root, "/")}, nil
}

func (s *cloudinaryStorage) Upload(ctx context.Context, folder string, img Image) (string, error) {
	if s.root != "" {
		folder = s.root + "/" + folder
	}

	name := strings.TrimSuffix(filepath.Base(img.FileName), filepath.Ext(img.FileName))
	params := uploader.UploadParams{
		Folder:         folder,
		PublicID:       fmt.Sprintf("%d-%s", time.Now().UnixNano(), name),
		UniqueFilename: api.Bool(true),
		Overwrite:      api.Bool(false),
		// Store everything as webp at automatic quality.
		Format:         "webp",
		Transformation: "q_auto",
	}

	resp, err := s.cld.Upload.Upload(ctx, img.Reader, params)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload returned no secure url")
	}

	return resp.SecureURL, nil
}
