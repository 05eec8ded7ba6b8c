package imagehost

import (
	"context"
	"errors"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type cloudinaryBackend struct {
	cld *cloudinary.Cloudinary
}

func newCloudinaryBackend(cloudName, apiKey, apiSecret string) (*cloudinaryBackend, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	cld.Config.URL.Secure = true
	return &cloudinaryBackend{cld: cld}, nil
}

func (b *cloudinaryBackend) upload(ctx context.Context, file string, p uploadParams) (UploadResult, error) {
	res, err := b.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		PublicID:       p.PublicID,
		Folder:         p.Folder,
		Tags:           p.Tags,
		Transformation: p.Transformation,
		ResourceType:   p.ResourceType,
	})
	if err != nil {
		return UploadResult{}, err
	}
	if res.Error.Message != "" {
		return UploadResult{}, errors.New(res.Error.Message)
	}
	return UploadResult{
		PublicID:     res.PublicID,
		URL:          res.URL,
		SecureURL:    res.SecureURL,
		Width:        res.Width,
		Height:       res.Height,
		Format:       res.Format,
		ResourceType: res.ResourceType,
		CreatedAt:    res.CreatedAt,
	}, nil
}

func (b *cloudinaryBackend) destroy(ctx context.Context, publicID string) (string, error) {
	res, err := b.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return "", err
	}
	if res.Error.Message != "" {
		return "", errors.New(res.Error.Message)
	}
	return res.Result, nil
}

func (b *cloudinaryBackend) url(publicID, transformation string) (string, error) {
	img, err := b.cld.Image(publicID)
	if err != nil {
		return "", err
	}
	img.Transformation = transformation
	img.Config.URL.Secure = true
	return img.String()
}
