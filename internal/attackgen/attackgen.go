// Package attackgen generates synthetic path and query values from
// regular expressions, for the probe CLI's synthetic-traffic mode:
// hitting an endpoint template like /users/{regex_gen:[0-9]{6}} with a
// fresh generated value on every attempt instead of a fixed URL.
package attackgen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lucasjones/reggen"
)

// maxRepeat bounds how many times an unbounded repeat (`*`, `+`, `{n,}`)
// in a pattern expands to.
const maxRepeat = 10

var placeholder = regexp.MustCompile(`\{regex_gen:((?:[^{}]|\{[^{}]*\})+)\}`)

// Generator produces fresh values for every `{regex_gen:<pattern>}`
// placeholder found in a URL template, each backed by its own
// compiled reggen generator so repeated expansion doesn't recompile
// the pattern on every call.
type Generator struct {
	generators map[string]*reggen.Generator
}

// New compiles a Generator for the placeholders found in template. It
// returns an error naming the first invalid pattern.
func New(template string) (*Generator, error) {
	g := &Generator{generators: make(map[string]*reggen.Generator)}

	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		pattern := m[1]
		if _, ok := g.generators[pattern]; ok {
			continue
		}
		gen, err := reggen.NewGenerator(pattern, nil)
		if err != nil {
			return nil, fmt.Errorf("attackgen: invalid pattern %q: %w", pattern, err)
		}
		g.generators[pattern] = gen
	}

	return g, nil
}

// Expand replaces every placeholder in template with a freshly
// generated value.
func (g *Generator) Expand(template string) string {
	if !strings.Contains(template, "{regex_gen:") {
		return template
	}
	return placeholder.ReplaceAllStringFunc(template, func(match string) string {
		pattern := placeholder.FindStringSubmatch(match)[1]
		gen, ok := g.generators[pattern]
		if !ok {
			return match
		}
		return gen.Generate(maxRepeat)
	})
}

// HasPlaceholders reports whether template contains any
// `{regex_gen:...}` placeholder.
func HasPlaceholders(template string) bool {
	return placeholder.MatchString(template)
}
