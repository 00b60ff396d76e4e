package maincmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/willow/internal/maincmd"
)

func stdio(stdin string) (mainer.Stdio, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return mainer.Stdio{
		Stdin:  strings.NewReader(stdin),
		Stdout: &stdout,
		Stderr: &stderr,
	}, &stdout, &stderr
}

func TestTooManyArgsExits64(t *testing.T) {
	c := &maincmd.Cmd{}
	io, _, stderr := stdio("")
	code := c.Main([]string{"willow", "a.lox", "b.lox"}, io)
	assert.Equal(t, mainer.ExitCode(64), code)
	assert.NotEmpty(t, stderr.String())
}

func TestUnreadableFileExits74(t *testing.T) {
	c := &maincmd.Cmd{}
	io, _, stderr := stdio("")
	code := c.Main([]string{"willow", filepath.Join(t.TempDir(), "missing.lox")}, io)
	assert.Equal(t, mainer.ExitCode(74), code)
	assert.NotEmpty(t, stderr.String())
}

func TestCompileErrorExits65(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.lox")
	require.NoError(t, os.WriteFile(path, []byte("var;"), 0o644))

	c := &maincmd.Cmd{}
	io, _, stderr := stdio("")
	code := c.Main([]string{"willow", path}, io)
	assert.Equal(t, mainer.ExitCode(65), code)
	assert.NotEmpty(t, stderr.String())
}

func TestRuntimeErrorExits70(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.lox")
	require.NoError(t, os.WriteFile(path, []byte("print nope;"), 0o644))

	c := &maincmd.Cmd{}
	io, _, _ := stdio("")
	code := c.Main([]string{"willow", path}, io)
	assert.Equal(t, mainer.ExitCode(70), code)
}

func TestSuccessfulScriptExits0(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ok.lox")
	require.NoError(t, os.WriteFile(path, []byte(`print 1 + 1;`), 0o644))

	c := &maincmd.Cmd{}
	io, stdout, _ := stdio("")
	code := c.Main([]string{"willow", path}, io)
	assert.Equal(t, mainer.Success, code)
	assert.Equal(t, "2\n", stdout.String())
}

func TestReplInterpretsOneLineAtATimeAgainstPersistentState(t *testing.T) {
	c := &maincmd.Cmd{}
	io, stdout, _ := stdio("var n = 1;\nprint n + 1;\n")
	code := c.Main([]string{"willow"}, io)
	assert.Equal(t, mainer.Success, code)
	assert.Contains(t, stdout.String(), "2\n")
}
