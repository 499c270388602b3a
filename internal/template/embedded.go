package template

import (
	"embed"
	"fmt"
)

//go:embed nginx/*.tmpl
var nginxTemplates embed.FS

// Template names.
const (
	NameSite = "site"
	NameStub = "stub"
)

// load returns the raw template content by name.
func load(name string) (string, error) {
	switch name {
	case NameSite, NameStub:
	default:
		return "", fmt.Errorf("unknown template: %s", name)
	}
	content, err := nginxTemplates.ReadFile(fmt.Sprintf("nginx/%s.tmpl", name))
	if err != nil {
		return "", fmt.Errorf("template not found: %s", name)
	}
	return string(content), nil
}
