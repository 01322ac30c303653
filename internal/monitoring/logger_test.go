package monitoring

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogger(t *testing.T) {
	defer Reset()

	var calls int
	SetLogger(func(format string, v ...interface{}) { calls++ })
	Logf("a")
	Debugf("b")
	Tracef("c")
	Errorf("d")
	assert.Equal(t, 4, calls)

	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("muted") })
	assert.Equal(t, 4, calls)
}

func TestSetLevel(t *testing.T) {
	defer Reset()
	defer func() { _ = SetLevel("info") }()

	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	require.NoError(t, SetLevel("error"))
	Logf("hidden %d", 1)
	assert.Empty(t, buf.String())

	require.NoError(t, SetLevel("verbose"))
	Tracef("sample %d", 7)
	assert.Contains(t, buf.String(), "sample 7")

	require.NoError(t, SetLevel("none"))
	buf.Reset()
	Errorf("nope")
	assert.Empty(t, buf.String())

	assert.Error(t, SetLevel("loud"))
}
