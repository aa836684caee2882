package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ReceiptUploader stores payout proofs and returns their public URL.
type ReceiptUploader interface {
	Upload(ctx context.Context, requestID uint, filename string, file io.Reader) (string, error)
}

type CloudinaryReceiptUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryReceiptUploader(cld *cloudinary.Cloudinary, folder string) *CloudinaryReceiptUploader {
	if folder == "" {
		folder = "payout-receipts"
	}
	return &CloudinaryReceiptUploader{cld: cld, folder: folder}
}

func (u *CloudinaryReceiptUploader) Upload(ctx context.Context, requestID uint, filename string, file io.Reader) (string, error) {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	resp, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:   u.folder,
		PublicID: fmt.Sprintf("withdrawal-%d-%s", requestID, base),
	})
	if err != nil {
		return "", err
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary: %s", resp.Error.Message)
	}
	return resp.SecureURL, nil
}
