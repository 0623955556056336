// file: internal/utils/cloudinary.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"platewise/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// ImageUpload describes one incoming recipe image
type ImageUpload struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

// UploadResult contains the result of an image upload
type UploadResult struct {
	URL      string
	PublicID string
	Format   string
	Size     int
}

// ImageStorage defines the interface for recipe image storage
type ImageStorage interface {
	UploadImage(ctx context.Context, upload *ImageUpload) (*UploadResult, error)
	DeleteImage(ctx context.Context, publicID string) error
}

// Custom errors for specific failure cases
var (
	ErrFileTooLarge       = fmt.Errorf("file size exceeds limit")
	ErrInvalidContentType = fmt.Errorf("invalid content type")
	ErrInvalidExtension   = fmt.Errorf("invalid file extension")
	ErrUnableToReadFile   = fmt.Errorf("unable to read file")
	ErrCloudinaryInit     = fmt.Errorf("failed to initialize Cloudinary")
	ErrMissingCredentials = fmt.Errorf("cloudinary credentials are missing")
	ErrUploadFailed       = fmt.Errorf("failed to upload file")
	ErrDeleteFailed       = fmt.Errorf("failed to delete file")
)

// imageContentTypes maps the accepted image MIME types to their valid
// extensions
var imageContentTypes = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
	"image/webp": {".webp"},
}

// CloudinaryService wraps the Cloudinary client for recipe image storage
type CloudinaryService struct {
	client        *cloudinary.Cloudinary
	cfg           config.CloudinaryConfig
	maxFileSize   int64
	uploadTimeout time.Duration
	deleteTimeout time.Duration
	maxRetries    int
	logger        *zap.Logger
}

// NewCloudinaryService creates an image storage backed by Cloudinary
func NewCloudinaryService(cfg config.CloudinaryConfig, logger *zap.Logger) (*CloudinaryService, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, ErrMissingCredentials
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCloudinaryInit, err)
	}

	service := &CloudinaryService{
		client:        cld,
		cfg:           cfg,
		maxFileSize:   10 * 1024 * 1024,
		uploadTimeout: 30 * time.Second,
		deleteTimeout: 10 * time.Second,
		maxRetries:    3,
		logger:        logger,
	}

	logger.Info("Cloudinary image storage initialized",
		zap.String("folder", cfg.UploadFolder),
		zap.Strings("allowed_formats", cfg.AllowedFormats),
	)
	return service, nil
}

// ptrBool returns a pointer to a bool
func ptrBool(b bool) *bool {
	return &b
}

// UploadImage validates and uploads a recipe image, retrying transient
// failures with exponential backoff
func (c *CloudinaryService) UploadImage(ctx context.Context, upload *ImageUpload) (*UploadResult, error) {
	startTime := time.Now()
	c.logger.Info("Starting image upload",
		zap.String("filename", upload.Filename),
		zap.Int64("size", upload.Size),
	)

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	if upload.Size > c.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d bytes", ErrFileTooLarge, upload.Size, c.maxFileSize)
	}

	// Sniff the content type from the first 512 bytes, then stitch the
	// consumed prefix back onto the stream.
	buffer := make([]byte, 512)
	n, err := io.ReadFull(upload.Reader, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("%w: %v", ErrUnableToReadFile, err)
	}
	body := io.MultiReader(bytes.NewReader(buffer[:n]), upload.Reader)

	contentType := http.DetectContentType(buffer[:n])
	if err := c.validate(upload.Filename, contentType); err != nil {
		return nil, err
	}

	uploadParams := uploader.UploadParams{
		Folder:         c.cfg.UploadFolder,
		UseFilename:    ptrBool(true),
		UniqueFilename: ptrBool(true),
		ResourceType:   "image",
	}

	var result *uploader.UploadResult
	operation := func() error {
		var opErr error
		result, opErr = c.client.Upload.Upload(ctx, body, uploadParams)
		return opErr
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.uploadTimeout / 2
	err = backoff.RetryNotify(
		operation,
		backoff.WithMaxRetries(b, uint64(c.maxRetries)),
		func(err error, d time.Duration) {
			c.logger.Warn("Upload attempt failed",
				zap.String("filename", upload.Filename),
				zap.Error(err),
				zap.Duration("backoff", d))
		},
	)
	if err != nil {
		c.logger.Error("All upload attempts failed",
			zap.String("filename", upload.Filename),
			zap.Int("attempts", c.maxRetries),
			zap.Error(err))
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrUploadFailed, c.maxRetries, err)
	}

	c.logger.Info("Image uploaded successfully",
		zap.String("filename", upload.Filename),
		zap.Duration("duration", time.Since(startTime)),
		zap.String("public_id", result.PublicID),
		zap.String("url", result.SecureURL))

	return &UploadResult{
		URL:      result.SecureURL,
		PublicID: result.PublicID,
		Format:   result.Format,
		Size:     result.Bytes,
	}, nil
}

// DeleteImage removes an image from Cloudinary by its public ID
func (c *CloudinaryService) DeleteImage(ctx context.Context, publicID string) error {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.deleteTimeout)
	defer cancel()

	_, err := c.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID: publicID,
	})
	if err != nil {
		c.logger.Error("Failed to delete image",
			zap.String("public_id", publicID),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	c.logger.Info("Image deleted",
		zap.String("public_id", publicID),
		zap.Duration("duration", time.Since(startTime)))
	return nil
}

// validate checks the sniffed content type and the filename extension
// against the configured image formats
func (c *CloudinaryService) validate(filename, contentType string) error {
	extensions, ok := imageContentTypes[contentType]
	if !ok {
		c.logger.Warn("Content type not allowed",
			zap.String("filename", filename),
			zap.String("content_type", contentType))
		return fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
	}

	ext := strings.ToLower(extensionOf(filename))
	if !slices.Contains(extensions, ext) {
		expected := strings.Join(extensions, ", ")
		return fmt.Errorf("%w: file has extension %s but content is %s (expected: %s)",
			ErrInvalidExtension, ext, contentType, expected)
	}

	format := strings.TrimPrefix(ext, ".")
	if len(c.cfg.AllowedFormats) > 0 && !slices.Contains(c.cfg.AllowedFormats, format) {
		return fmt.Errorf("%w: format %s is not enabled", ErrInvalidExtension, format)
	}

	return nil
}

// extensionOf returns the trailing extension of a filename, dot included
func extensionOf(filename string) string {
	for i := len(filename) - 1; i >= 0; i-- {
		if filename[i] == '.' {
			return filename[i:]
		}
	}
	return ""
}
