package recommendation

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category describes one entry of the fixed category catalog.
type Category struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// Catalog is the fixed set of category tags recommendations may carry.
// The tag itself is free-form text but must come from this catalog.
type Catalog struct {
	Categories []Category `yaml:"categories"`
}

// DefaultCatalog returns the built-in category catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Categories: []Category{
			{Name: "prompt_injection", Description: "Prompt injection and jailbreak exposure"},
			{Name: "data_exfiltration", Description: "Sensitive data leaving the agent boundary"},
			{Name: "tool_misuse", Description: "Unsafe or over-privileged tool invocation"},
			{Name: "credential_exposure", Description: "Secrets or credentials in agent context"},
			{Name: "excessive_permissions", Description: "Agent granted broader access than needed"},
			{Name: "unsafe_output", Description: "Unvalidated agent output reaching downstream systems"},
			{Name: "memory_poisoning", Description: "Persistent agent memory tainted by untrusted input"},
			{Name: "rate_abuse", Description: "Missing throttling on agent-initiated actions"},
		},
	}
}

// ParseCatalog parses a catalog from YAML bytes.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse category catalog: %w", err)
	}
	if len(c.Categories) == 0 {
		return nil, fmt.Errorf("category catalog is empty")
	}
	for i, cat := range c.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return nil, fmt.Errorf("category %d has no name", i)
		}
	}
	return &c, nil
}

// LoadCatalog reads a catalog from a YAML file, falling back to the built-in
// catalog when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category catalog: %w", err)
	}
	return ParseCatalog(data)
}

// Contains reports whether name is a known category (case-insensitive).
func (c *Catalog) Contains(name string) bool {
	for _, cat := range c.Categories {
		if strings.EqualFold(cat.Name, name) {
			return true
		}
	}
	return false
}

// Names returns the catalog category names in declaration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		names[i] = cat.Name
	}
	return names
}
