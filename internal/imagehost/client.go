// Package imagehost wraps the image CDN used for uploaded media.
package imagehost

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gxshared/internal/debuglog"
	"gxshared/internal/domain"
)

const (
	DefaultFolder = "menu-items"
	ResourceAuto  = "auto"
)

// Transformation is one step of a delivery or incoming transformation chain.
type Transformation struct {
	Width   int
	Height  int
	Crop    string
	Quality string
	Format  string
}

func (t Transformation) String() string {
	var parts []string
	if t.Crop != "" {
		parts = append(parts, "c_"+t.Crop)
	}
	if t.Format != "" {
		parts = append(parts, "f_"+t.Format)
	}
	if t.Height > 0 {
		parts = append(parts, "h_"+strconv.Itoa(t.Height))
	}
	if t.Quality != "" {
		parts = append(parts, "q_"+t.Quality)
	}
	if t.Width > 0 {
		parts = append(parts, "w_"+strconv.Itoa(t.Width))
	}
	return strings.Join(parts, ",")
}

func chain(ts []Transformation) string {
	parts := make([]string, 0, len(ts))
	for _, t := range ts {
		if s := t.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// Source is either raw bytes or a string reference (a data URI or a remote
// URL the provider fetches).
type Source struct {
	Data []byte
	Ref  string
}

func Bytes(b []byte) Source { return Source{Data: b} }

func Ref(s string) Source { return Source{Ref: s} }

func (s Source) value() string {
	if s.Data != nil {
		return "data:image/png;base64," + base64.StdEncoding.EncodeToString(s.Data)
	}
	return s.Ref
}

type UploadOptions struct {
	Folder         string
	PublicID       string
	Tags           []string
	Transformation []Transformation
}

type UploadResult struct {
	PublicID     string    `json:"publicId"`
	URL          string    `json:"url"`
	SecureURL    string    `json:"secureUrl"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Format       string    `json:"format"`
	ResourceType string    `json:"resourceType"`
	CreatedAt    time.Time `json:"createdAt"`
}

type URLOptions struct {
	Width   int
	Height  int
	Crop    string
	Quality int
	Format  string
}

type uploadParams struct {
	Folder         string
	PublicID       string
	Tags           []string
	Transformation string
	ResourceType   string
}

// backend is the provider API surface.
type backend interface {
	upload(ctx context.Context, file string, p uploadParams) (UploadResult, error)
	destroy(ctx context.Context, publicID string) (string, error)
	url(publicID, transformation string) (string, error)
}

type Client struct {
	backend backend
	logger  *slog.Logger
	debug   *debuglog.Debugger
	now     func() time.Time
}

type Options struct {
	CloudName string
	APIKey    string
	APISecret string
	Logger    *slog.Logger
	Debug     *debuglog.Debugger
}

func New(opts Options) (*Client, error) {
	switch {
	case opts.CloudName == "":
		return nil, domain.NewConfigurationError("APP_IMAGE_CLOUD_NAME", "not set")
	case opts.APIKey == "":
		return nil, domain.NewConfigurationError("APP_IMAGE_API_KEY", "not set")
	case opts.APISecret == "":
		return nil, domain.NewConfigurationError("APP_IMAGE_API_SECRET", "not set")
	}
	b, err := newCloudinaryBackend(opts.CloudName, opts.APIKey, opts.APISecret)
	if err != nil {
		return nil, domain.NewConfigurationError("APP_IMAGE_CLOUD_NAME", err.Error())
	}
	return newClient(b, opts.Logger, opts.Debug), nil
}

func newClient(b backend, logger *slog.Logger, debug *debuglog.Debugger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{backend: b, logger: logger, debug: debug, now: time.Now}
}

func (c *Client) Upload(ctx context.Context, src Source, opts UploadOptions) (UploadResult, error) {
	file := src.value()
	if file == "" {
		return UploadResult{}, domain.NewValidationError(map[string]string{"file": "required"})
	}

	p := uploadParams{
		Folder:       opts.Folder,
		PublicID:     opts.PublicID,
		Tags:         opts.Tags,
		ResourceType: ResourceAuto,
	}
	if p.Folder == "" {
		p.Folder = DefaultFolder
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	ts := opts.Transformation
	if len(ts) == 0 {
		ts = []Transformation{{Width: 800, Height: 800, Crop: "limit"}}
	}
	p.Transformation = chain(ts)

	c.debug.Server(debuglog.FeatureImages, "uploading image", "folder", p.Folder, "public_id", p.PublicID, "tags", p.Tags)
	res, err := c.backend.upload(ctx, file, p)
	if err != nil {
		c.logger.Error("image upload failed", "folder", p.Folder, "public_id", p.PublicID, "err", err)
		return UploadResult{}, domain.NewTransportError("imagehost", "upload", err)
	}
	c.debug.Server(debuglog.FeatureImages, "image uploaded", "public_id", res.PublicID, "url", res.URL)
	return res, nil
}

// Delete reports whether the provider confirmed the deletion.
func (c *Client) Delete(ctx context.Context, publicID string) (bool, error) {
	if strings.TrimSpace(publicID) == "" {
		return false, domain.NewValidationError(map[string]string{"publicId": "required"})
	}
	c.debug.Server(debuglog.FeatureImages, "deleting image", "public_id", publicID)
	result, err := c.backend.destroy(ctx, publicID)
	if err != nil {
		c.logger.Error("image delete failed", "public_id", publicID, "err", err)
		return false, domain.NewTransportError("imagehost", "destroy", err)
	}
	ok := result == "ok"
	c.debug.Server(debuglog.FeatureImages, "image delete result", "public_id", publicID, "result", result)
	return ok, nil
}

// URL builds a secure delivery URL locally.
func (c *Client) URL(publicID string, opts URLOptions) (string, error) {
	var ts []Transformation
	if opts.Width > 0 || opts.Height > 0 {
		crop := opts.Crop
		if crop == "" {
			crop = "fill"
		}
		ts = append(ts, Transformation{Width: opts.Width, Height: opts.Height, Crop: crop})
	}
	if opts.Quality > 0 {
		ts = append(ts, Transformation{Quality: strconv.Itoa(opts.Quality)})
	}
	if opts.Format != "" {
		ts = append(ts, Transformation{Format: opts.Format})
	}
	u, err := c.backend.url(publicID, chain(ts))
	if err != nil {
		return "", fmt.Errorf("build image url: %w", err)
	}
	return u, nil
}

// FormatNameForPublicID lowercases name, turns every byte outside [a-z0-9]
// into "-", collapses runs of "-" and trims them from both ends.
func FormatNameForPublicID(name string) string {
	lower := strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(lower))
	dash := false
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

func (c *Client) UploadMenuItemImage(ctx context.Context, src Source, itemName string) (UploadResult, error) {
	return c.Upload(ctx, src, UploadOptions{
		Folder:         "menu-items",
		PublicID:       fmt.Sprintf("menu-item-%s-%d", FormatNameForPublicID(itemName), c.now().UnixMilli()),
		Tags:           []string{"menu", "food"},
		Transformation: []Transformation{{Width: 800, Height: 800, Crop: "limit", Quality: "auto"}},
	})
}

func (c *Client) UploadMenuCategoryImage(ctx context.Context, src Source, categoryName string) (UploadResult, error) {
	return c.Upload(ctx, src, UploadOptions{
		Folder:         "menu-categories",
		PublicID:       fmt.Sprintf("category-%s-%d", FormatNameForPublicID(categoryName), c.now().UnixMilli()),
		Tags:           []string{"menu", "category"},
		Transformation: []Transformation{{Width: 600, Height: 400, Crop: "fill", Quality: "auto"}},
	})
}
