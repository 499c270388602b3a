package template

import (
	"strings"
	"testing"
)

func TestRenderSite(t *testing.T) {
	params := Params{
		Domain:       "app.example.com",
		FrontendPort: 3000,
		BackendPort:  3001,
		SSLCert:      "/etc/nginx/ssl/self-signed/app.crt",
		SSLKey:       "/etc/nginx/ssl/self-signed/app.key",
	}

	rendered, err := RenderSite(params)
	if err != nil {
		t.Fatalf("RenderSite failed: %v", err)
	}

	contains := []string{
		"server_name app.example.com",
		"return 301 https://$host$request_uri",
		"listen 443 ssl",
		"ssl_certificate /etc/nginx/ssl/self-signed/app.crt",
		"ssl_certificate_key /etc/nginx/ssl/self-signed/app.key",
		"location /api",
		"location /health",
		"proxy_pass http://127.0.0.1:3001",
		"proxy_pass http://127.0.0.1:3000",
		"proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for",
		"proxy_set_header X-Forwarded-Proto $scheme",
		"proxy_set_header Upgrade $http_upgrade",
		"root " + DefaultChallengeRoot,
	}
	for _, want := range contains {
		if !strings.Contains(rendered, want) {
			t.Errorf("rendered config missing %q", want)
		}
	}

	if strings.Contains(rendered, "{{") {
		t.Error("rendered config contains unexpanded placeholders")
	}
}

func TestRenderStub(t *testing.T) {
	rendered, err := RenderStub(Params{Domain: "new.example.com", ChallengeRoot: "/srv/acme"})
	if err != nil {
		t.Fatalf("RenderStub failed: %v", err)
	}
	if !strings.Contains(rendered, "server_name new.example.com") {
		t.Error("stub missing server_name")
	}
	if !strings.Contains(rendered, "root /srv/acme") {
		t.Error("stub missing challenge root override")
	}
	if strings.Contains(rendered, "443") {
		t.Error("stub should not have an HTTPS listener")
	}
}

func TestRenderMissingParameters(t *testing.T) {
	base := Params{
		Domain:       "app.example.com",
		FrontendPort: 3000,
		BackendPort:  3001,
		SSLCert:      "/tmp/a.crt",
		SSLKey:       "/tmp/a.key",
	}

	testCases := []struct {
		name   string
		mutate func(*Params)
		field  string
	}{
		{"no domain", func(p *Params) { p.Domain = "" }, "Domain"},
		{"no frontend port", func(p *Params) { p.FrontendPort = 0 }, "FrontendPort"},
		{"no backend port", func(p *Params) { p.BackendPort = 0 }, "BackendPort"},
		{"no cert", func(p *Params) { p.SSLCert = "" }, "SSLCert"},
		{"no key", func(p *Params) { p.SSLKey = "" }, "SSLKey"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			params := base
			tc.mutate(&params)

			_, err := RenderSite(params)
			if err == nil {
				t.Fatal("expected missing-parameter error")
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("error should name the missing field %s: %v", tc.field, err)
			}
		})
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, err := Render("wordpress", Params{Domain: "x"}); err == nil {
		t.Error("expected error for unknown template name")
	}
}
