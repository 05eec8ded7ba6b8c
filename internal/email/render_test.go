package email

import "testing"

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		in   string
		data map[string]string
		want string
	}{
		{"Hi {{name}}", map[string]string{"name": "Sam"}, "Hi Sam"},
		{"Hi {{missing}}", map[string]string{}, "Hi {{missing}}"},
		{"Hi {{ name }}", map[string]string{"name": "Sam"}, "Hi Sam"},
		{"{{a}}{{b}} {{ c }}", map[string]string{"a": "1"}, "1{{b}} {{ c }}"},
		{"Empty {{v}}", map[string]string{"v": ""}, "Empty "},
	}
	for _, tt := range tests {
		if got := RenderTemplate(tt.in, tt.data); got != tt.want {
			t.Fatalf("RenderTemplate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderTemplateTwoPasses(t *testing.T) {
	first := RenderTemplate("{{greeting}} {{name}}", map[string]string{"greeting": "Hello"})
	if got := RenderTemplate(first, map[string]string{"name": "Sam"}); got != "Hello Sam" {
		t.Fatalf("two pass render = %q", got)
	}
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  URLConfig
		want string
	}{
		{"override wins", URLConfig{PublicURL: "https://example.com/", PlatformHost: "app.platform.dev"}, "https://example.com"},
		{"local default port", URLConfig{}, "http://localhost:3000"},
		{"local custom port", URLConfig{LocalPort: "8080"}, "http://localhost:8080"},
		{"platform forced https", URLConfig{PlatformHost: "app.platform.dev"}, "https://app.platform.dev"},
		{"platform with scheme", URLConfig{PlatformHost: "http://app.platform.dev"}, "https://app.platform.dev"},
	}
	for _, tt := range tests {
		if got := tt.cfg.BaseURL(); got != tt.want {
			t.Fatalf("%s: BaseURL = %q, want %q", tt.name, got, tt.want)
		}
	}
}
