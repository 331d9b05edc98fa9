package srv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileTemplate(t *testing.T) {
	t.Run("root template is exact with zero segments", func(t *testing.T) {
		tpl, err := CompileTemplate("/")
		require.NoError(t, err)
		assert.True(t, tpl.Exact())
		assert.Empty(t, tpl.segments)
		assert.False(t, tpl.TrailingSlash())
	})

	t.Run("literal template is exact", func(t *testing.T) {
		tpl, err := CompileTemplate("/api/status")
		require.NoError(t, err)
		assert.True(t, tpl.Exact())
		assert.Len(t, tpl.segments, 2)
	})

	t.Run("param template is dynamic", func(t *testing.T) {
		tpl, err := CompileTemplate("/user/{userId}")
		require.NoError(t, err)
		assert.False(t, tpl.Exact())
		assert.Equal(t, segmentParam, tpl.segments[1].kind)
		assert.Equal(t, "userId", tpl.segments[1].name)
	})

	t.Run("splat template with default bounds", func(t *testing.T) {
		tpl, err := CompileTemplate("/files/[parts]")
		require.NoError(t, err)
		assert.False(t, tpl.Exact())
		assert.True(t, tpl.hasSplat)
		assert.Equal(t, 1, tpl.segments[1].minItems)
		assert.Equal(t, 32, tpl.segments[1].maxItems)
	})

	t.Run("splat with fixed length", func(t *testing.T) {
		tpl, err := CompileTemplate("/files/[parts:3]")
		require.NoError(t, err)
		assert.Equal(t, 3, tpl.segments[1].minItems)
		assert.Equal(t, 3, tpl.segments[1].maxItems)
	})

	t.Run("splat with explicit range", func(t *testing.T) {
		tpl, err := CompileTemplate("/files/[parts:2:5]")
		require.NoError(t, err)
		assert.Equal(t, 2, tpl.segments[1].minItems)
		assert.Equal(t, 5, tpl.segments[1].maxItems)
	})

	t.Run("trailing slash recorded and stripped", func(t *testing.T) {
		tpl, err := CompileTemplate("/needs-slash/")
		require.NoError(t, err)
		assert.True(t, tpl.TrailingSlash())
		assert.Len(t, tpl.segments, 1)
	})

	t.Run("minSegmentsFrom is a right-to-left suffix sum", func(t *testing.T) {
		tpl, err := CompileTemplate("/a/{b}/[c:2:4]/d")
		require.NoError(t, err)
		assert.Equal(t, []int{5, 4, 3, 1, 0}, tpl.minSegmentsFrom)
	})

	t.Run("missing leading slash fails", func(t *testing.T) {
		_, err := CompileTemplate("user/{id}")
		assert.Error(t, err)

		_, err = CompileTemplate("")
		assert.Error(t, err)
	})

	t.Run("invalid capture names fail", func(t *testing.T) {
		for _, tc := range []string{"/u/{1abc}", "/u/{a-b}", "/u/{}", "/u/[3parts]", "/u/[]"} {
			_, err := CompileTemplate(tc)
			assert.Error(t, err, tc)
		}
	})

	t.Run("malformed capture syntax fails", func(t *testing.T) {
		for _, tc := range []string{"/u/{name", "/u/[name", "/u/[name:x]", "/u/[name:1:y]", "/u/[name:1:2:3]"} {
			_, err := CompileTemplate(tc)
			assert.Error(t, err, tc)
		}
	})

	t.Run("duplicate capture names fail", func(t *testing.T) {
		for _, tc := range []string{"/u/{a}/{a}", "/u/{a}/[a]", "/[a]/x/[a:2]"} {
			_, err := CompileTemplate(tc)
			assert.Error(t, err, tc)
		}
	})

	t.Run("splat bounds must satisfy 1 <= min <= max", func(t *testing.T) {
		for _, tc := range []string{"/u/[p:0]", "/u/[p:0:3]", "/u/[p:-1]", "/u/[p:5:2]"} {
			_, err := CompileTemplate(tc)
			assert.Error(t, err, tc)
		}
	})

	t.Run("exact iff no capture segments", func(t *testing.T) {
		cases := map[string]bool{
			"/":             true,
			"/a/b/c":        true,
			"/a/{b}":        false,
			"/a/[b]":        false,
			"/{a}/b":        false,
			"/literal-only": true,
		}
		for tpl, exact := range cases {
			compiled, err := CompileTemplate(tpl)
			require.NoError(t, err, tpl)
			assert.Equal(t, exact, compiled.Exact(), tpl)
		}
	})
}
