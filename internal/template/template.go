package template

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/tlsdeploy/tlsdeploy/internal/errors"
)

// DefaultChallengeRoot is the webroot nginx serves ACME challenge
// files from when none is configured.
const DefaultChallengeRoot = "/var/www/html"

// Params contains the values substituted into a server-block template.
type Params struct {
	Domain        string
	FrontendPort  int
	BackendPort   int
	SSLCert       string
	SSLKey        string
	ChallengeRoot string
}

// requiredBy lists, per template, which parameters must be non-zero.
// Checked eagerly, before template execution touches anything.
var requiredBy = map[string][]string{
	NameSite: {"Domain", "FrontendPort", "BackendPort", "SSLCert", "SSLKey"},
	NameStub: {"Domain"},
}

// validate returns an error naming the first missing parameter.
func (p *Params) validate(name string) error {
	missing := func(field string) bool {
		switch field {
		case "Domain":
			return p.Domain == ""
		case "FrontendPort":
			return p.FrontendPort == 0
		case "BackendPort":
			return p.BackendPort == 0
		case "SSLCert":
			return p.SSLCert == ""
		case "SSLKey":
			return p.SSLKey == ""
		}
		return false
	}
	for _, field := range requiredBy[name] {
		if missing(field) {
			return errors.Render("template %s: missing required parameter %s", name, field)
		}
	}
	return nil
}

// Render executes the named template with the given parameters. It
// fails before producing any output if a required parameter is absent.
func Render(name string, params Params) (string, error) {
	if err := params.validate(name); err != nil {
		return "", err
	}
	if params.ChallengeRoot == "" {
		params.ChallengeRoot = DefaultChallengeRoot
	}

	content, err := load(name)
	if err != nil {
		return "", errors.Wrap(errors.CodeRender, "load template", err)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", errors.Wrap(errors.CodeRender, "execute template", err)
	}

	return buf.String(), nil
}

// RenderSite renders the full HTTP-redirect plus HTTPS-proxy pair for
// one domain.
func RenderSite(params Params) (string, error) {
	return Render(NameSite, params)
}

// RenderStub renders the temporary HTTP-only block used during initial
// certificate issuance.
func RenderStub(params Params) (string, error) {
	return Render(NameStub, params)
}
