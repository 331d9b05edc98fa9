package srv

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// segmentKind tags the variant of a template segment.
type segmentKind int

const (
	segmentLiteral segmentKind = iota
	segmentParam
	segmentSplat
)

// Default bounds for a splat capture declared without explicit limits.
const (
	defaultSplatMin = 1
	defaultSplatMax = 32
)

// identRegexp validates capture names inside {} and [].
var identRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// segment is one element of a compiled template: a literal that must match
// exactly, a param consuming exactly one request segment, or a splat
// consuming a bounded variable-length run.
type segment struct {
	kind    segmentKind
	literal string

	// name is the capture name for param and splat segments.
	name string

	// minItems and maxItems bound the run consumed by a splat segment.
	// Always 1 <= minItems <= maxItems.
	minItems int
	maxItems int
}

// Template is a compiled path template. It is immutable after compilation
// and safe for concurrent matching.
type Template struct {
	template      string
	segments      []segment
	exact         bool
	hasSplat      bool
	trailingSlash bool

	// minSegmentsFrom[i] is the minimum number of request segments required
	// to satisfy segments[i:]. The sentinel past the last segment is 0;
	// literals and params add 1, splats add their minItems.
	minSegmentsFrom []int
}

// String returns the original template string.
func (t *Template) String() string {
	return t.template
}

// Exact reports whether the template contains no captures.
func (t *Template) Exact() bool {
	return t.exact
}

// TrailingSlash reports whether the template requires the request path to
// carry a trailing slash.
func (t *Template) TrailingSlash() bool {
	return t.trailingSlash
}

// CompileTemplate parses a path template string into a Template.
//
// The grammar supports literal segments, single-segment captures {name},
// and variable-length captures [name], [name:N] and [name:N:M] with default
// bounds 1..32. Capture names must match [A-Za-z_][A-Za-z0-9_]*.
//
// It returns an error when the template does not start with /, a capture
// name is invalid, the capture syntax is malformed, or splat bounds violate
// 1 <= min <= max.
func CompileTemplate(tpl string) (*Template, error) {
	if !strings.HasPrefix(tpl, "/") {
		return nil, fmt.Errorf("srv: template %q must start with /", tpl)
	}

	t := &Template{template: tpl}

	// The root template compiles to zero segments and is exact.
	if tpl == "/" {
		t.exact = true
		t.minSegmentsFrom = []int{0}
		return t, nil
	}

	rest := tpl[1:]
	if strings.HasSuffix(rest, "/") {
		t.trailingSlash = true
		rest = strings.TrimSuffix(rest, "/")
	}

	names := make(map[string]bool)
	for _, raw := range strings.Split(rest, "/") {
		seg, err := parseSegment(raw, tpl)
		if err != nil {
			return nil, err
		}
		if seg.kind != segmentLiteral {
			if names[seg.name] {
				return nil, fmt.Errorf("srv: duplicate capture name %q in template %q", seg.name, tpl)
			}
			names[seg.name] = true
		}
		if seg.kind == segmentSplat {
			t.hasSplat = true
		}
		t.segments = append(t.segments, seg)
	}

	t.exact = true
	for _, seg := range t.segments {
		if seg.kind != segmentLiteral {
			t.exact = false
			break
		}
	}

	t.minSegmentsFrom = make([]int, len(t.segments)+1)
	for i := len(t.segments) - 1; i >= 0; i-- {
		need := 1
		if t.segments[i].kind == segmentSplat {
			need = t.segments[i].minItems
		}
		t.minSegmentsFrom[i] = t.minSegmentsFrom[i+1] + need
	}

	return t, nil
}

// parseSegment classifies one raw template segment. Segments delimited by
// {} or [] are captures and must be fully well-formed; anything else is a
// literal.
func parseSegment(raw, tpl string) (segment, error) {
	switch {
	case strings.HasPrefix(raw, "{"):
		if !strings.HasSuffix(raw, "}") || len(raw) < 2 {
			return segment{}, fmt.Errorf("srv: malformed capture %q in template %q", raw, tpl)
		}
		name := raw[1 : len(raw)-1]
		if !identRegexp.MatchString(name) {
			return segment{}, fmt.Errorf("srv: invalid capture name %q in template %q", name, tpl)
		}
		return segment{kind: segmentParam, name: name}, nil

	case strings.HasPrefix(raw, "["):
		if !strings.HasSuffix(raw, "]") || len(raw) < 2 {
			return segment{}, fmt.Errorf("srv: malformed capture %q in template %q", raw, tpl)
		}
		return parseSplat(raw[1:len(raw)-1], raw, tpl)

	default:
		return segment{kind: segmentLiteral, literal: raw}, nil
	}
}

// parseSplat parses the inside of a [] capture: name, name:N or name:N:M.
func parseSplat(inner, raw, tpl string) (segment, error) {
	parts := strings.Split(inner, ":")
	if len(parts) > 3 {
		return segment{}, fmt.Errorf("srv: malformed capture %q in template %q", raw, tpl)
	}

	name := parts[0]
	if !identRegexp.MatchString(name) {
		return segment{}, fmt.Errorf("srv: invalid capture name %q in template %q", name, tpl)
	}

	seg := segment{
		kind:     segmentSplat,
		name:     name,
		minItems: defaultSplatMin,
		maxItems: defaultSplatMax,
	}

	if len(parts) >= 2 {
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return segment{}, fmt.Errorf("srv: malformed capture %q in template %q", raw, tpl)
		}
		seg.minItems = n
		seg.maxItems = n
	}
	if len(parts) == 3 {
		m, err := strconv.Atoi(parts[2])
		if err != nil {
			return segment{}, fmt.Errorf("srv: malformed capture %q in template %q", raw, tpl)
		}
		seg.maxItems = m
	}

	if seg.minItems < 1 {
		return segment{}, fmt.Errorf("srv: capture %q in template %q: minimum must be at least 1", raw, tpl)
	}
	if seg.maxItems < seg.minItems {
		return segment{}, fmt.Errorf("srv: capture %q in template %q: maximum must not be below minimum", raw, tpl)
	}

	return seg, nil
}
