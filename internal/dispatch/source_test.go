package dispatch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TSEQuote.20251119")
	content := "Trade,2355  ,90000000000,0,492000,1,1\n" +
		"Depth,2355  ,90000100000,BID:1,486000*10,ASK:1,492000*10\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	src, err := OpenFile(path)
	require.NoError(t, err)
	defer src.Close()

	ctx := context.Background()

	line, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Trade,2355  ,90000000000,0,492000,1,1", line)

	line, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Contains(t, line, "Depth,2355")

	_, err = src.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestFileSource_Missing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "absent"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileSource_ContextCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotes")
	require.NoError(t, os.WriteFile(path, []byte("Trade,1,2,3\n"), 0o644))

	src, err := OpenFile(path)
	require.NoError(t, err)
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChanSource(t *testing.T) {
	ch := make(chan string, 2)
	ch <- "a"
	close(ch)

	src := ChanSource{C: ch}
	ctx := context.Background()

	line, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", line)

	_, err = src.Next(ctx)
	assert.Equal(t, io.EOF, err)
}
