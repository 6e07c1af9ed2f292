// Package content holds the copy shown on the site's pages.
package content

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tusharganotra/portfolio/internal/typewriter"
)

//go:embed content.yaml
var raw []byte

type Link struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

type Profile struct {
	Name       string   `yaml:"name" json:"name"`
	Title      string   `yaml:"title" json:"title"`
	Tagline    string   `yaml:"tagline" json:"tagline"`
	Bio        []string `yaml:"bio" json:"bio"`
	Email      string   `yaml:"email" json:"email"`
	Resume     string   `yaml:"resume" json:"resume"`
	GitHubUser string   `yaml:"github_user" json:"github_user"`
	Links      []Link   `yaml:"links" json:"links"`
}

type Skill struct {
	Category string   `yaml:"category" json:"category"`
	Items    []string `yaml:"items" json:"items"`
}

type Project struct {
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Tech        []string `yaml:"tech" json:"tech"`
	GitHub      string   `yaml:"github" json:"github,omitempty"`
	Demo        string   `yaml:"demo" json:"demo,omitempty"`
	Featured    bool     `yaml:"featured" json:"featured"`
}

type Job struct {
	Role    string `yaml:"role" json:"role"`
	Company string `yaml:"company" json:"company"`
	Period  string `yaml:"period" json:"period"`
	Summary string `yaml:"summary" json:"summary"`
	Current bool   `yaml:"current" json:"current"`
}

type Education struct {
	Degree      string `yaml:"degree" json:"degree"`
	Institution string `yaml:"institution" json:"institution"`
	Period      string `yaml:"period" json:"period"`
}

type Now struct {
	Intro      string      `yaml:"intro" json:"intro"`
	Status     []string    `yaml:"status" json:"status"`
	Experience []Job       `yaml:"experience" json:"experience"`
	Education  []Education `yaml:"education" json:"education"`
}

// Terminal is a titled typewriter script.
type Terminal struct {
	Title string   `yaml:"title" json:"title"`
	Lines []string `yaml:"lines" json:"lines"`
}

// Script returns the lines as a typewriter script.
func (t Terminal) Script() typewriter.Script {
	return typewriter.Script(t.Lines)
}

// Site is everything the pages render.
type Site struct {
	Profile   Profile             `yaml:"profile" json:"profile"`
	Skills    []Skill             `yaml:"skills" json:"skills"`
	Projects  []Project           `yaml:"projects" json:"projects"`
	Now       Now                 `yaml:"now" json:"now"`
	Terminals map[string]Terminal `yaml:"terminals" json:"terminals"`
}

// Load parses the embedded content.
func Load() (*Site, error) {
	return Parse(raw)
}

// Parse decodes a content document and checks the fields pages rely on.
func Parse(b []byte) (*Site, error) {
	var s Site
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	if strings.TrimSpace(s.Profile.Name) == "" {
		return nil, fmt.Errorf("parse content: profile.name is required")
	}
	for name, t := range s.Terminals {
		if len(t.Lines) == 0 {
			return nil, fmt.Errorf("parse content: terminal %q has no lines", name)
		}
	}
	return &s, nil
}

// Terminal returns the named script.
func (s *Site) Terminal(name string) (Terminal, bool) {
	t, ok := s.Terminals[name]
	return t, ok
}
