// Package site serves the narrative pages of the wage analysis project:
// the introduction, the proposal overview and the team roster. Content is
// embedded YAML authored in markdown and rendered to HTML once at load.
package site

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"gopkg.in/yaml.v2"
)

//go:embed content.yaml
var embeddedContent []byte

// citeMarker matches the "[cite: 7]" source annotations left in the copy
var citeMarker = regexp.MustCompile(`\s*\[cite:[^\]]*\]`)

// Image is a picture with a caption. Src is the URL to display: the
// authored URL when reachable, otherwise the placeholder.
type Image struct {
	URL     string `yaml:"url" json:"url"`
	Caption string `yaml:"caption" json:"caption,omitempty"`
	Src     string `yaml:"-" json:"src"`
}

// Block is one vertical element of a page
type Block struct {
	Heading  string   `yaml:"heading" json:"heading,omitempty"`
	Markdown string   `yaml:"markdown" json:"markdown,omitempty"`
	Callout  bool     `yaml:"callout" json:"callout,omitempty"`
	Divider  bool     `yaml:"divider" json:"divider,omitempty"`
	Bullets  []string `yaml:"bullets" json:"bullets,omitempty"`
	Numbered []string `yaml:"numbered" json:"numbered,omitempty"`
	Image    *Image   `yaml:"image" json:"image,omitempty"`
	HTML     string   `yaml:"-" json:"html,omitempty"`
}

// Page is one navigable page of the site
type Page struct {
	Slug     string  `yaml:"slug" json:"slug"`
	Nav      string  `yaml:"nav" json:"nav"`
	Title    string  `yaml:"title" json:"title"`
	Subtitle string  `yaml:"subtitle" json:"subtitle,omitempty"`
	Blocks   []Block `yaml:"blocks" json:"blocks"`
}

// PageSummary is the navigation entry of a page
type PageSummary struct {
	Slug  string `json:"slug"`
	Nav   string `json:"nav"`
	Title string `json:"title"`
}

// Member is one person on the team page. Blank links are empty and omitted.
type Member struct {
	Name     string `yaml:"name" json:"name"`
	Role     string `yaml:"role" json:"role"`
	Bio      string `yaml:"bio" json:"bio"`
	LinkedIn string `yaml:"linkedin" json:"linkedin,omitempty"`
	GitHub   string `yaml:"github" json:"github,omitempty"`
	Image    string `yaml:"image" json:"image,omitempty"`
	Photo    string `yaml:"-" json:"photo"`
}

// Content is the full site copy
type Content struct {
	SiteTitle string   `yaml:"site_title" json:"site_title"`
	Pages     []Page   `yaml:"pages" json:"pages"`
	Team      []Member `yaml:"team" json:"team"`
}

// LoadContent parses the embedded site copy
func LoadContent() (*Content, error) {
	return ParseContent(embeddedContent)
}

// ParseContent decodes YAML site copy, strips citation markers, trims blank
// links and renders every markdown fragment to HTML.
func ParseContent(b []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse site content: %w", err)
	}

	seen := make(map[string]bool, len(c.Pages))
	for i := range c.Pages {
		p := &c.Pages[i]
		if p.Slug == "" {
			return nil, fmt.Errorf("parse site content: page %d has no slug", i)
		}
		if seen[p.Slug] {
			return nil, fmt.Errorf("parse site content: duplicate page %q", p.Slug)
		}
		seen[p.Slug] = true

		for j := range p.Blocks {
			normalizeBlock(&p.Blocks[j])
		}
	}

	for i := range c.Team {
		m := &c.Team[i]
		m.LinkedIn = strings.TrimSpace(m.LinkedIn)
		m.GitHub = strings.TrimSpace(m.GitHub)
		m.Image = strings.TrimSpace(m.Image)
	}
	return &c, nil
}

func normalizeBlock(b *Block) {
	b.Markdown = stripCitations(b.Markdown)
	for i := range b.Bullets {
		b.Bullets[i] = stripCitations(b.Bullets[i])
	}
	for i := range b.Numbered {
		b.Numbered[i] = stripCitations(b.Numbered[i])
	}

	var md strings.Builder
	if b.Markdown != "" {
		md.WriteString(b.Markdown)
		md.WriteString("\n\n")
	}
	for _, item := range b.Bullets {
		fmt.Fprintf(&md, "- %s\n", item)
	}
	if len(b.Bullets) > 0 {
		md.WriteString("\n")
	}
	for i, item := range b.Numbered {
		fmt.Fprintf(&md, "%d. %s\n", i+1, item)
	}
	if md.Len() > 0 {
		b.HTML = renderMarkdown(md.String())
	}
}

func stripCitations(s string) string {
	return strings.TrimSpace(citeMarker.ReplaceAllString(s, ""))
}

func renderMarkdown(md string) string {
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	})
	return strings.TrimSpace(string(markdown.ToHTML([]byte(md), nil, renderer)))
}
