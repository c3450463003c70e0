package logger

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevFlags := log.Flags()
	log.SetFlags(0)
	SetOutput(&buf)
	prevLevel := GetLogLevel()
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		log.SetFlags(prevFlags)
		logLevel.Store(int32(prevLevel))
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t)

	SetLogLevel("warn")
	Debugf("hidden %d", 1)
	Infof("hidden %d", 2)
	Warnf("shown %d", 3)
	Errorf("shown %d", 4)

	assert.Equal(t, "[WARN] shown 3\n[ERROR] shown 4\n", buf.String())
}

func TestSetLogLevel_UnknownFallsBackToInfo(t *testing.T) {
	captureOutput(t)

	SetLogLevel("verbose")
	assert.Equal(t, LevelInfo, GetLogLevel())
}

func TestParseLogLevel(t *testing.T) {
	l, ok := ParseLogLevel(" trace ")
	assert.True(t, ok)
	assert.Equal(t, LevelTrace, l)

	l, ok = ParseLogLevel("SILENT")
	assert.True(t, ok)
	assert.Equal(t, LevelSilent, l)
}

func TestSilentSuppressesErrors(t *testing.T) {
	buf := captureOutput(t)

	SetLogLevel("SILENT")
	Errorf("dropped")

	assert.Empty(t, buf.String())
	assert.False(t, IsEnabled(LevelError))
}

func TestShortFunctionName(t *testing.T) {
	assert.Equal(t, "main.run", shortFunctionName("main.run.func1"))
	assert.Equal(t, "main.run", shortFunctionName("main.run"))
}
