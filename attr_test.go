package usync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarrierAttrPshared(t *testing.T) {
	attr := NewBarrierAttr()
	assert.Equal(t, ProcessPrivate, attr.Pshared())

	require.NoError(t, attr.SetPshared(ProcessShared))
	assert.Equal(t, ProcessShared, attr.Pshared())

	require.NoError(t, attr.SetPshared(ProcessPrivate))
	assert.Equal(t, ProcessPrivate, attr.Pshared())

	assert.ErrorIs(t, attr.SetPshared(Pshared(42)), ErrInvalid)
}

func TestRWLockAttrKind(t *testing.T) {
	attr := NewRWLockAttr()
	assert.Equal(t, Default, attr.Kind())

	for _, k := range []Kind{PreferReader, PreferWriter, PreferWriterNonrecursive, Default} {
		require.NoError(t, attr.SetKind(k))
		assert.Equal(t, k, attr.Kind())
	}

	assert.ErrorIs(t, attr.SetKind(Kind(42)), ErrInvalid)
}

func TestRWLockAttrPshared(t *testing.T) {
	attr := NewRWLockAttr()
	assert.Equal(t, ProcessPrivate, attr.Pshared())

	assert.ErrorIs(t, attr.SetPshared(ProcessShared), ErrNotSupported)
	assert.Equal(t, ProcessPrivate, attr.Pshared())

	assert.ErrorIs(t, attr.SetPshared(Pshared(42)), ErrInvalid)
	require.NoError(t, attr.SetPshared(ProcessPrivate))
}

func TestNewRWLockNilAttrDefaults(t *testing.T) {
	l := NewRWLock(nil)
	assert.Equal(t, Default, l.kind)
	assert.Equal(t, ProcessPrivate, l.pshared)
}
