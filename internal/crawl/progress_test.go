package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogProgress_LogsEveryTenth(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	done := LogProgress{}.Begin(StageSignal, 100)
	for range 100 {
		done()
	}

	assert.Equal(t, 1, logs.FilterMessage("crawl: stage started").Len())
	assert.Equal(t, 10, logs.FilterMessage("crawl: stage progress").Len())
}

func TestLogProgress_SmallTotal(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	done := LogProgress{}.Begin(StageEnrich, 3)
	for range 3 {
		done()
	}

	assert.Equal(t, 3, logs.FilterMessage("crawl: stage progress").Len())
}
