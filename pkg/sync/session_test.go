package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureSessionStart(t *testing.T) {
	e := newTestEngine(t, newMockStore())

	writeLocal(t, "a.json", profileJSON(10, "a"))
	writeLocal(t, "B.JSON", profileJSON(20, "b"))
	writeLocal(t, "corrupt.json", []byte("{"))
	writeLocal(t, "readme.txt", []byte("not a profile"))
	require.NoError(t, fs.MkdirAll(testProfilesDir+"/nested.json", 0755))

	snapshot, err := e.CaptureSessionStart()
	require.NoError(t, err)
	assert.Equal(t, SessionSnapshot{
		"a.json":       10,
		"B.JSON":       20,
		"corrupt.json": 0,
	}, snapshot)
}

func TestCaptureSessionStartNoDirectory(t *testing.T) {
	e := newTestEngine(t, newMockStore())
	require.NoError(t, fs.RemoveAll(testProfilesDir))

	snapshot, err := e.CaptureSessionStart()
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}
