// Package script loads teleprompter scripts from files.
package script

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const separator = "---\n"

// ErrEmpty is returned when a script file has no body text.
var ErrEmpty = errors.New("script is empty")

// Meta is the optional YAML front matter of a script file.
type Meta struct {
	Title    string   `yaml:"title"`
	FontSize *int     `yaml:"font-size"`
	Speed    *float64 `yaml:"speed"`
}

// Script is a loaded script body plus its front matter.
type Script struct {
	Meta
	Text string
}

// Load reads a script from a plain text or Markdown file.
func Load(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	s, err := Parse(string(data))
	if err != nil {
		return Script{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse splits optional front matter from the body and trims surrounding blank lines.
func Parse(content string) (Script, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")

	var s Script
	body := content
	if strings.HasPrefix(content, separator) {
		rest := strings.TrimPrefix(content, separator)
		raw, tail, ok := cutFrontMatter(rest)
		if !ok {
			return Script{}, fmt.Errorf("invalid front matter: missing closing separator")
		}
		if err := yaml.Unmarshal([]byte(raw), &s.Meta); err != nil {
			return Script{}, fmt.Errorf("unmarshal front matter: %w", err)
		}
		body = tail
	}

	s.Text = strings.Trim(body, "\n")
	s.Text = strings.TrimRight(s.Text, " \t\n")
	if strings.TrimSpace(s.Text) == "" {
		return Script{}, ErrEmpty
	}
	return s, nil
}

func cutFrontMatter(rest string) (string, string, bool) {
	if strings.HasPrefix(rest, separator) {
		return "", strings.TrimPrefix(rest, separator), true
	}
	idx := strings.Index(rest, "\n"+separator)
	if idx >= 0 {
		return rest[:idx], rest[idx+1+len(separator):], true
	}
	if strings.HasSuffix(rest, "\n---") {
		return strings.TrimSuffix(rest, "\n---"), "", true
	}
	return "", "", false
}
