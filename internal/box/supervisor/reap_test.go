package supervisor

import (
	"os/exec"
	"testing"

	"gotest.tools/v3/assert"
)

func TestOCICodeNormalExit(t *testing.T) {
	assert.Equal(t, ExitStatus{Code: 17}.OCICode(), 17)
}

func TestOCICodeSignaled(t *testing.T) {
	assert.Equal(t, ExitStatus{Signal: 9}.OCICode(), 137)
}

func TestWaitInitReapsNormalExit(t *testing.T) {
	cmd := exec.Command("/bin/sh", "-c", "exit 7")
	assert.NilError(t, cmd.Start())

	status, err := WaitInit(cmd.Process.Pid)
	assert.NilError(t, err)
	assert.Equal(t, status.OCICode(), 7)
}

func TestWaitInitReapsSignaledExit(t *testing.T) {
	cmd := exec.Command("/bin/sh", "-c", "kill -KILL $$")
	assert.NilError(t, cmd.Start())

	status, err := WaitInit(cmd.Process.Pid)
	assert.NilError(t, err)
	assert.Equal(t, status.OCICode(), 128+9)
}
