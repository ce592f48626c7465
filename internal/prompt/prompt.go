// internal/prompt/prompt.go

// Package prompt renders model instructions from templates. Rendering is a
// pure function of the template text and its data, so prompts can be asserted
// on without a live model.
package prompt

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

// Media markers are "\x00<nonce>:<index>\x00". The nonce is fresh for every
// render, so template data cannot forge one.
const markerDelim = "\x00"

// Part is either a run of text or a single media reference.
type Part struct {
	Text  string
	Media *Media
}

type Media struct {
	URL string
}

// Prompt is the rendered instruction: ordered text and media parts.
type Prompt struct {
	Name  string
	Parts []Part
}

// Text concatenates the text parts, replacing media with "[image]".
func (p *Prompt) Text() string {
	var b strings.Builder
	for _, part := range p.Parts {
		if part.Media != nil {
			b.WriteString("[image]")
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

// Media returns the media references in order of appearance.
func (p *Prompt) Media() []Media {
	var out []Media
	for _, part := range p.Parts {
		if part.Media != nil {
			out = append(out, *part.Media)
		}
	}
	return out
}

type Template struct {
	name string
	tmpl *template.Template
}

var funcs = template.FuncMap{
	// Replaced per render.
	"media": func(url any) string {
		return ""
	},
	"inc": func(i int) int {
		return i + 1
	},
}

// Parse compiles a template. Besides the standard text/template actions,
// {{media .Field}} inlines an image reference at that position and {{inc $i}}
// turns a zero-based range index into a list number.
func Parse(name, text string) (*Template, error) {
	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", name, err)
	}
	return &Template{name: name, tmpl: tmpl}, nil
}

// MustParse is Parse for package-level templates.
func MustParse(name, text string) *Template {
	t, err := Parse(name, text)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) Name() string {
	return t.name
}

func (t *Template) Render(data any) (*Prompt, error) {
	nonce, err := newNonce()
	if err != nil {
		return nil, fmt.Errorf("render prompt %s: %w", t.name, err)
	}

	var urls []string
	tmpl, err := t.tmpl.Clone()
	if err != nil {
		return nil, fmt.Errorf("render prompt %s: %w", t.name, err)
	}
	tmpl.Funcs(template.FuncMap{
		"media": func(url any) string {
			urls = append(urls, fmt.Sprint(url))
			return markerDelim + nonce + ":" + strconv.Itoa(len(urls)-1) + markerDelim
		},
	})

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render prompt %s: %w", t.name, err)
	}
	return &Prompt{Name: t.name, Parts: split(buf.String(), nonce, urls)}, nil
}

func newNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate media nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// split cuts rendered at the media markers for nonce. Any other NUL is
// removed from the text.
func split(rendered, nonce string, urls []string) []Part {
	open := markerDelim + nonce + ":"
	var parts []Part
	text := func(s string) {
		if s = strings.ReplaceAll(s, markerDelim, ""); s != "" {
			parts = append(parts, Part{Text: s})
		}
	}

	for rendered != "" {
		start := strings.Index(rendered, open)
		if start == -1 {
			text(rendered)
			break
		}
		rest := rendered[start+len(open):]
		end := strings.Index(rest, markerDelim)
		idx, err := strconv.Atoi(rest[:max(end, 0)])
		if end == -1 || err != nil || idx < 0 || idx >= len(urls) {
			text(rendered[:start+len(open)])
			rendered = rest
			continue
		}
		text(rendered[:start])
		parts = append(parts, Part{Media: &Media{URL: urls[idx]}})
		rendered = rest[end+len(markerDelim):]
	}
	return parts
}
