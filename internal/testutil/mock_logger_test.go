package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/logging"
)

func TestMockLogger_RecordsMessages(t *testing.T) {
	ml := NewMockLogger()

	ml.Info("parse stored", logging.String("record_id", "rec-1"))
	ml.Warn("publish failed")
	ml.Warn("publish failed")

	assert.True(t, ml.HasMessage("info", "parse stored"))
	assert.True(t, ml.HasMessage("warn", "publish failed"))
	assert.False(t, ml.HasMessage("error", "publish failed"))
	assert.Equal(t, 2, ml.CountLevel("warn"))

	msgs := ml.GetMessages()
	assert.Len(t, msgs, 3)
	assert.Equal(t, "record_id", msgs[0].Fields[0].Key)
}

func TestMockLogger_ChildrenShareRecorder(t *testing.T) {
	ml := NewMockLogger()

	ml.Named("review").With(logging.String("k", "v")).Info("hello")

	assert.True(t, ml.HasMessage("info", "hello"))
}

func TestMockLogger_Clear(t *testing.T) {
	ml := NewMockLogger()
	ml.Info("one")
	ml.Clear()
	assert.Empty(t, ml.GetMessages())
}
