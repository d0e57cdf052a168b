package orchestrator

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/linyaps-box/box/internal/box/boxerr"
)

func TestParseUserUIDOnly(t *testing.T) {
	uid, gid, err := parseUser("1000")
	assert.NilError(t, err)
	assert.Equal(t, uid, "1000")
	assert.Equal(t, gid, "")
}

func TestParseUserUIDAndGID(t *testing.T) {
	uid, gid, err := parseUser("1000:1000")
	assert.NilError(t, err)
	assert.Equal(t, uid, "1000")
	assert.Equal(t, gid, "1000")
}

func TestParseUserRejectsNonNumericUID(t *testing.T) {
	_, _, err := parseUser("root")
	kind, ok := boxerr.KindOf(err)
	assert.Assert(t, ok)
	assert.Equal(t, kind, boxerr.Config)
}

func TestParseUserRejectsNonNumericGID(t *testing.T) {
	_, _, err := parseUser("1000:wheel")
	kind, ok := boxerr.KindOf(err)
	assert.Assert(t, ok)
	assert.Equal(t, kind, boxerr.Config)
}
