// Package cards renders notification and dialog payloads as adaptive cards.
// The static texts live in an embedded YAML catalog so wording changes never
// touch builder code.
package cards

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

// Template holds the static texts of one card.
type Template struct {
	Title  string            `yaml:"title"`
	Body   string            `yaml:"body"`
	Action string            `yaml:"action"`
	Labels map[string]string `yaml:"labels"`
}

type catalogFile struct {
	HelpText string              `yaml:"help_text"`
	Cards    map[string]Template `yaml:"cards"`
}

var (
	loadOnce sync.Once
	loaded   catalogFile
	loadErr  error
)

func load() catalogFile {
	loadOnce.Do(func() {
		loadErr = yaml.Unmarshal(templatesYAML, &loaded)
	})
	if loadErr != nil {
		panic(fmt.Sprintf("cards: embedded template catalog is invalid: %v", loadErr))
	}
	return loaded
}

// HelpText is the command help / greeting message.
func HelpText() string {
	return load().HelpText
}

func template(name string) Template {
	tpl, ok := load().Cards[name]
	if !ok {
		panic(fmt.Sprintf("cards: unknown card template %q", name))
	}
	return tpl
}
