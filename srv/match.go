package srv

import (
	"net/url"
	"strings"
)

// splitPath decomposes a request path into its segments plus a
// trailing-slash flag. One trailing slash is trimmed when the path is
// longer than the root.
func splitPath(path string) ([]string, bool) {
	trailing := false
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		trailing = true
		path = path[:len(path)-1]
	}
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil, trailing
	}
	return strings.Split(path, "/"), trailing
}

// choicePoint records a splat segment whose capture length may still grow
// during backtracking.
type choicePoint struct {
	seg  int // index of the splat in the template
	pos  int // request segment index where the splat starts
	take int // current capture length
}

// match matches the template against decomposed request path segments.
// On success it returns the captured values: strings for params, []string
// for splats. On failure it returns no partial bindings.
//
// Splat lengths are tried ascending from minItems; the first length that
// lets the remainder of the template match wins. The walk is iterative
// with an explicit choice-point stack, so adversarial paths with many
// splats cannot exhaust the goroutine stack.
func (t *Template) match(segs []string, trailingSlash bool) (map[string]any, bool) {
	if t.trailingSlash && !trailingSlash {
		return nil, false
	}
	if len(segs) < t.minSegmentsFrom[0] {
		return nil, false
	}
	if !t.hasSplat && len(segs) != len(t.segments) {
		return nil, false
	}

	bindings := make([]any, len(t.segments))
	var stack []choicePoint

	si, pi := 0, 0
	for {
		advanced := false

		if si == len(t.segments) {
			if pi == len(segs) {
				return t.captures(bindings), true
			}
		} else {
			seg := &t.segments[si]
			switch seg.kind {
			case segmentLiteral:
				if pi < len(segs) && segs[pi] == seg.literal {
					si++
					pi++
					advanced = true
				}

			case segmentParam:
				if pi < len(segs) {
					if v, err := url.PathUnescape(segs[pi]); err == nil {
						bindings[si] = v
						si++
						pi++
						advanced = true
					}
				}

			case segmentSplat:
				// The upper bound leaves enough segments for the rest of
				// the template.
				limit := seg.maxItems
				if avail := len(segs) - pi - t.minSegmentsFrom[si+1]; avail < limit {
					limit = avail
				}
				if seg.minItems <= limit {
					if vals, ok := decodeRun(segs[pi : pi+seg.minItems]); ok {
						stack = append(stack, choicePoint{seg: si, pos: pi, take: seg.minItems})
						bindings[si] = vals
						pi += seg.minItems
						si++
						advanced = true
					}
				}
			}
		}

		if advanced {
			continue
		}

		// Backtrack: grow the most recent splat that can still consume
		// more, popping exhausted ones.
		for {
			if len(stack) == 0 {
				return nil, false
			}
			cp := &stack[len(stack)-1]
			seg := &t.segments[cp.seg]
			limit := seg.maxItems
			if avail := len(segs) - cp.pos - t.minSegmentsFrom[cp.seg+1]; avail < limit {
				limit = avail
			}
			cp.take++
			if cp.take > limit {
				stack = stack[:len(stack)-1]
				continue
			}
			if vals, ok := decodeRun(segs[cp.pos : cp.pos+cp.take]); ok {
				bindings[cp.seg] = vals
				si = cp.seg + 1
				pi = cp.pos + cp.take
				break
			}
			// An undecodable segment inside the run fails this length;
			// keep growing until the bound pops the choice point.
		}
	}
}

// captures assembles the per-segment bindings into the result map.
func (t *Template) captures(bindings []any) map[string]any {
	vars := make(map[string]any)
	for i, seg := range t.segments {
		if seg.kind == segmentLiteral {
			continue
		}
		vars[seg.name] = bindings[i]
	}
	return vars
}

// decodeRun percent-decodes a run of request segments for a splat capture.
// A decode failure fails the candidate run, never the whole request.
func decodeRun(segs []string) ([]string, bool) {
	vals := make([]string, len(segs))
	for i, s := range segs {
		v, err := url.PathUnescape(s)
		if err != nil {
			return nil, false
		}
		vals[i] = v
	}
	return vals, true
}
