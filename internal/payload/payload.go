// Package payload reads deployment requests from files shaped like
// {"title": "...", "image": {"url": "..."}}. YAML and JSON are both accepted.
package payload

import (
	"errors"
	"fmt"
	"os"

	"deploytrigger/internal/trigger"

	"gopkg.in/yaml.v3"
)

var ErrInvalidPayload = errors.New("invalid payload")

type document struct {
	Title string `yaml:"title"`
	Image struct {
		URL string `yaml:"url"`
	} `yaml:"image"`
}

func Load(path string) (trigger.DeploymentRequest, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return trigger.DeploymentRequest{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return Parse(data)
}

// Parse leaves missing keys empty; the trigger rejects them later. Values are
// passed through untouched, surrounding whitespace included.
func Parse(data []byte) (trigger.DeploymentRequest, error) {
	var doc document

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return trigger.DeploymentRequest{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return trigger.DeploymentRequest{
		Title:    doc.Title,
		ImageURL: doc.Image.URL,
	}, nil
}
