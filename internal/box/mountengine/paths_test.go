package mountengine

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestSplitPath(t *testing.T) {
	cases := []struct {
		in, dir, base string
	}{
		{"/etc/resolv.conf", "/etc", "resolv.conf"},
		{"etc/resolv.conf", "etc", "resolv.conf"},
		{"resolv.conf", "", "resolv.conf"},
		{"/a/b/c", "/a/b", "c"},
	}
	for _, c := range cases {
		dir, base := splitPath(c.in)
		assert.Equal(t, dir, c.dir, "dir for %q", c.in)
		assert.Equal(t, base, c.base, "base for %q", c.in)
	}
}

func TestValueOr(t *testing.T) {
	assert.Equal(t, valueOr("", "fallback"), "fallback")
	assert.Equal(t, valueOr("explicit", "fallback"), "explicit")
}
