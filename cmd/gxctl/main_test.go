package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("APP_ENV_FILE", t.TempDir()+"/missing.env")
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PUBLIC_URL", "https://shop.test")
	t.Setenv("APP_SITE_NAME", "Shop")
	jsonOutput = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRenderEmailText(t *testing.T) {
	out, err := runCmd(t, "render-email", "magic-link-login", "--token", "abc", "--part", "text")
	if err != nil {
		t.Fatalf("render-email: %v", err)
	}
	if !strings.HasPrefix(out, "Subject: Your login link for Shop\n") {
		t.Fatalf("unexpected subject line:\n%s", out)
	}
	if !strings.Contains(out, "https://shop.test/auth/verify?token=abc&type=login") {
		t.Fatalf("link missing:\n%s", out)
	}
}

func TestRenderEmailJSON(t *testing.T) {
	out, err := runCmd(t, "render-email", "admin-login", "--token", "t1", "--json")
	if err != nil {
		t.Fatalf("render-email: %v", err)
	}
	var r struct {
		Subject string `json:"subject"`
	}
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if r.Subject != "Admin login for Shop Control Center" {
		t.Fatalf("unexpected subject %q", r.Subject)
	}
}

func TestRenderEmailUnknownTemplate(t *testing.T) {
	if _, err := runCmd(t, "render-email", "nope", "--part", "text"); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}

func TestDevLoginURL(t *testing.T) {
	out, err := runCmd(t, "dev-login-url", "dev@example.com", "--admin")
	if err != nil {
		t.Fatalf("dev-login-url: %v", err)
	}
	out = strings.TrimSpace(out)
	if !strings.HasPrefix(out, "https://shop.test/api/auth/verify?") || !strings.Contains(out, "token=DEV_TOKEN-dev%40example.com-1-auto") {
		t.Fatalf("unexpected url %q", out)
	}
}

func TestDevLoginURLRejectedInProd(t *testing.T) {
	t.Setenv("APP_COOKIE_SECRET", strings.Repeat("s", 32))
	t.Setenv("APP_ENV", "prod")
	rootCmd.SetArgs([]string{"dev-login-url", "dev@example.com"})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Setenv("APP_ENV_FILE", t.TempDir()+"/missing.env")
	if err := rootCmd.Execute(); err == nil {
		t.Fatalf("expected prod rejection")
	}
}

func TestImageCommandsRequireCredentials(t *testing.T) {
	t.Setenv("APP_IMAGE_CLOUD_NAME", "")
	if _, err := runCmd(t, "image-url", "menu-items/pizza"); err == nil {
		t.Fatalf("expected configuration error")
	}
}
