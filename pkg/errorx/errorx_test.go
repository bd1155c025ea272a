package errorx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("record not found")
	err := Wrap(cause, CodeNotFound, "会话不存在")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeNotFound, GetCode(err))
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "会话不存在: record not found", err.Error())
}

func TestGetCodeDefaultsToServerBusy(t *testing.T) {
	assert.Equal(t, CodeServerBusy, GetCode(errors.New("boom")))
}

func TestWithDataDoesNotTouchSharedInstance(t *testing.T) {
	err := ErrForbidden.WithData(map[string]string{"assigned_agent_id": "A1"})

	require.NotNil(t, err.Data)
	assert.Nil(t, ErrForbidden.Data)
	assert.Equal(t, CodeForbidden, err.Code)
}
