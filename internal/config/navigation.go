package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Page is one entry of the console's navigation menu.
type Page struct {
	Title string `yaml:"title"`
	Path  string `yaml:"path"`
	// Roles restricts the entry to identities holding any of these tags;
	// empty means visible to everyone signed in.
	Roles []string `yaml:"roles,omitempty"`
}

// Navigation is the console menu definition.
type Navigation struct {
	Pages []Page `yaml:"pages"`
}

// LoadNavigation loads the menu from a YAML file.
func LoadNavigation(path string) (*Navigation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read navigation config: %w", err)
	}

	var nav Navigation
	if err := yaml.Unmarshal(data, &nav); err != nil {
		return nil, fmt.Errorf("parse navigation config: %w", err)
	}

	for _, p := range nav.Pages {
		if p.Path == "" {
			return nil, fmt.Errorf("navigation page %q: path is required", p.Title)
		}
	}
	return &nav, nil
}

// LoadNavigationOrDefault loads the menu or falls back to the built-in one.
func LoadNavigationOrDefault(path string) *Navigation {
	nav, err := LoadNavigation(path)
	if err != nil {
		return DefaultNavigation()
	}
	return nav
}

// DefaultNavigation returns the built-in console menu.
func DefaultNavigation() *Navigation {
	return &Navigation{
		Pages: []Page{
			{Title: "Dashboard", Path: "/"},
			{Title: "Members", Path: "/members"},
			{Title: "Events", Path: "/events"},
			{Title: "Branches", Path: "/branches", Roles: []string{"Admin", "SuperAdmin"}},
		},
	}
}
