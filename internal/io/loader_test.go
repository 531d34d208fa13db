package io

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"rawroom/internal/imaging"
)

func TestSupportedExtensions(t *testing.T) {
	t.Parallel()

	l := NewLoader(nil)
	require.True(t, l.Supported("a.jpg"))
	require.True(t, l.Supported("b.PNG"))
	require.True(t, l.Supported(filepath.Join("dir", "c.tiff")))
	require.False(t, l.Supported("d.raw"))
	require.False(t, l.Supported("noext"))
}

func TestLoadRejectsUnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, err := NewLoader(nil).Load("image.xyz")
	require.Error(t, err)
}

func TestProxyReturnsSourceWhenItFits(t *testing.T) {
	t.Parallel()

	buf, err := imaging.NewBuffer(120, 80)
	require.NoError(t, err)
	l := NewLoader(nil)

	got, err := l.Proxy(buf, 200)
	require.NoError(t, err)
	require.Same(t, buf, got)

	// maxDim 0 disables the proxy entirely.
	got, err = l.Proxy(buf, 0)
	require.NoError(t, err)
	require.Same(t, buf, got)
}

func TestProxyDownscalesLongestSide(t *testing.T) {
	t.Parallel()

	buf, err := imaging.NewBuffer(200, 100)
	require.NoError(t, err)
	buf.Fill(0.5, 0.5, 0.5)

	got, err := NewLoader(nil).Proxy(buf, 100)
	require.NoError(t, err)
	require.Equal(t, 100, got.W)
	require.Equal(t, 50, got.H)
	for i := range got.Pix {
		require.InDelta(t, 0.5, got.Pix[i], 0.01)
	}

	// Portrait orientation scales on height instead.
	tall, err := imaging.NewBuffer(100, 200)
	require.NoError(t, err)
	got, err = NewLoader(nil).Proxy(tall, 50)
	require.NoError(t, err)
	require.Equal(t, 25, got.W)
	require.Equal(t, 50, got.H)
}
