// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	l, err := New("debug", "json")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New("warn", "console")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))

	_, err = New("loud", "console")
	assert.Error(t, err)
	_, err = New("info", "xml")
	assert.Error(t, err)
}

func TestGlobalLogger(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	l := InitLogger("nope", "console")
	assert.Same(t, l, GetLogger())
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))

	nop := zap.NewNop()
	SetLogger(nop)
	assert.Same(t, nop, GetLogger())
}
