package imagehost

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gxshared/internal/domain"
)

type stubBackend struct {
	uploadFn  func(ctx context.Context, file string, p uploadParams) (UploadResult, error)
	destroyFn func(ctx context.Context, publicID string) (string, error)

	lastFile   string
	lastParams uploadParams
	lastURL    string
}

func (s *stubBackend) upload(ctx context.Context, file string, p uploadParams) (UploadResult, error) {
	s.lastFile = file
	s.lastParams = p
	if s.uploadFn != nil {
		return s.uploadFn(ctx, file, p)
	}
	return UploadResult{PublicID: p.Folder + "/" + p.PublicID, URL: "http://cdn/x.png"}, nil
}

func (s *stubBackend) destroy(ctx context.Context, publicID string) (string, error) {
	if s.destroyFn != nil {
		return s.destroyFn(ctx, publicID)
	}
	return "ok", nil
}

func (s *stubBackend) url(publicID, transformation string) (string, error) {
	s.lastURL = transformation
	if transformation == "" {
		return "https://cdn/image/upload/" + publicID, nil
	}
	return "https://cdn/image/upload/" + transformation + "/" + publicID, nil
}

func fixedClient(b *stubBackend) *Client {
	c := newClient(b, nil, nil)
	c.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return c
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Options{CloudName: "demo", APIKey: "k"})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestFormatNameForPublicID(t *testing.T) {
	tests := map[string]string{
		"Café Crème!!": "caf-cr-me",
		"Big  Burger":  "big-burger",
		"--Pasta--":    "pasta",
		"Menu 2024":    "menu-2024",
		"":             "",
		"!!!":          "",
	}
	for in, want := range tests {
		if got := FormatNameForPublicID(in); got != want {
			t.Fatalf("FormatNameForPublicID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUploadDefaults(t *testing.T) {
	b := &stubBackend{}
	c := fixedClient(b)

	if _, err := c.Upload(context.Background(), Ref("https://example.com/a.png"), UploadOptions{}); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if b.lastFile != "https://example.com/a.png" {
		t.Fatalf("file = %q", b.lastFile)
	}
	if b.lastParams.Folder != DefaultFolder || b.lastParams.ResourceType != ResourceAuto {
		t.Fatalf("params = %+v", b.lastParams)
	}
	if b.lastParams.Transformation != "c_limit,h_800,w_800" {
		t.Fatalf("transformation = %q", b.lastParams.Transformation)
	}
}

func TestUploadBytesAsDataURI(t *testing.T) {
	b := &stubBackend{}
	c := fixedClient(b)

	if _, err := c.Upload(context.Background(), Bytes([]byte("hi")), UploadOptions{Folder: "x"}); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if b.lastFile != "data:image/png;base64,aGk=" {
		t.Fatalf("file = %q", b.lastFile)
	}
}

func TestUploadEmptySource(t *testing.T) {
	c := fixedClient(&stubBackend{})
	_, err := c.Upload(context.Background(), Source{}, UploadOptions{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUploadProviderFailure(t *testing.T) {
	b := &stubBackend{uploadFn: func(context.Context, string, uploadParams) (UploadResult, error) {
		return UploadResult{}, errors.New("invalid signature")
	}}
	c := fixedClient(b)

	_, err := c.Upload(context.Background(), Ref("x"), UploadOptions{})
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid signature") {
		t.Fatalf("error lost cause: %v", err)
	}
}

func TestUploadMenuItemImage(t *testing.T) {
	b := &stubBackend{}
	c := fixedClient(b)

	res, err := c.UploadMenuItemImage(context.Background(), Ref("x"), "Café Crème!!")
	if err != nil {
		t.Fatalf("UploadMenuItemImage: %v", err)
	}
	p := b.lastParams
	if p.Folder != "menu-items" || p.PublicID != "menu-item-caf-cr-me-1700000000123" {
		t.Fatalf("params = %+v", p)
	}
	if strings.Join(p.Tags, ",") != "menu,food" {
		t.Fatalf("tags = %v", p.Tags)
	}
	if p.Transformation != "c_limit,h_800,q_auto,w_800" {
		t.Fatalf("transformation = %q", p.Transformation)
	}
	if res.PublicID != "menu-items/menu-item-caf-cr-me-1700000000123" {
		t.Fatalf("public id = %q", res.PublicID)
	}
}

func TestUploadMenuCategoryImage(t *testing.T) {
	b := &stubBackend{}
	c := fixedClient(b)

	if _, err := c.UploadMenuCategoryImage(context.Background(), Ref("x"), "Drinks & More"); err != nil {
		t.Fatalf("UploadMenuCategoryImage: %v", err)
	}
	p := b.lastParams
	if p.Folder != "menu-categories" || p.PublicID != "category-drinks-more-1700000000123" {
		t.Fatalf("params = %+v", p)
	}
	if strings.Join(p.Tags, ",") != "menu,category" {
		t.Fatalf("tags = %v", p.Tags)
	}
	if p.Transformation != "c_fill,h_400,q_auto,w_600" {
		t.Fatalf("transformation = %q", p.Transformation)
	}
}

func TestDelete(t *testing.T) {
	b := &stubBackend{}
	c := fixedClient(b)

	ok, err := c.Delete(context.Background(), "menu-items/a")
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}

	b.destroyFn = func(context.Context, string) (string, error) { return "not found", nil }
	ok, err = c.Delete(context.Background(), "menu-items/a")
	if err != nil || ok {
		t.Fatalf("Delete not found = %v, %v", ok, err)
	}

	b.destroyFn = func(context.Context, string) (string, error) { return "", errors.New("boom") }
	if _, err := c.Delete(context.Background(), "menu-items/a"); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestURL(t *testing.T) {
	b := &stubBackend{}
	c := fixedClient(b)

	u, err := c.URL("menu-items/a", URLOptions{Width: 100, Height: 50, Quality: 80, Format: "webp"})
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if b.lastURL != "c_fill,h_50,w_100/q_80/f_webp" {
		t.Fatalf("transformation = %q", b.lastURL)
	}
	if !strings.HasSuffix(u, "/menu-items/a") {
		t.Fatalf("url = %q", u)
	}

	if _, err := c.URL("a", URLOptions{}); err != nil || b.lastURL != "" {
		t.Fatalf("plain URL transformation = %q, %v", b.lastURL, err)
	}
}
