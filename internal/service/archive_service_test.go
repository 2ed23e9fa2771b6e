package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doumori-team/tradingpost/internal/domain"
	"github.com/doumori-team/tradingpost/internal/store/memory"
)

type stubBlobWriter struct {
	paths    []string
	payloads [][]byte
	err      error
}

func (w *stubBlobWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	if w.err != nil {
		return w.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.paths = append(w.paths, path)
	w.payloads = append(w.payloads, b)
	return nil
}

func (w *stubBlobWriter) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	return w.Put(ctx, path, data, "")
}

type stubBlobReader struct {
	writer *stubBlobWriter
}

func (r *stubBlobReader) Get(_ context.Context, path string) (io.ReadCloser, error) {
	for i, p := range r.writer.paths {
		if p == path {
			return io.NopCloser(bytes.NewReader(r.writer.payloads[i])), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *stubBlobReader) List(context.Context, string) ([]domain.BlobInfo, error) {
	return nil, nil
}

func (r *stubBlobReader) Exists(_ context.Context, path string) (bool, error) {
	for _, p := range r.writer.paths {
		if p == path {
			return true, nil
		}
	}
	return false, nil
}

func TestArchiveRunShipsAndDeletes(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writer := &stubBlobWriter{}
	svc := NewArchiveService(store, writer, nil, testLogger()).
		WithReader(&stubBlobReader{writer: writer})

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Log(ctx, domain.EventOfferMade, map[string]any{"n": i}))
	}

	// Everything just logged is inside any sane retention window.
	shipped, err := svc.Run(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, shipped)
	assert.Empty(t, writer.paths)

	// A zero retention window archives all of it.
	shipped, err = svc.Run(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, shipped)
	require.Len(t, writer.payloads, 1)

	// The upload is one JSON object per line.
	var lines int
	sc := bufio.NewScanner(bytes.NewReader(writer.payloads[0]))
	for sc.Scan() {
		var entry domain.AuditEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
		lines++
	}
	assert.Equal(t, 3, lines)

	// The primary store no longer holds the shipped entries.
	remaining, err := store.List(ctx, domain.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestArchiveRunKeepsEntriesWhenUploadFails(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writer := &stubBlobWriter{err: io.ErrClosedPipe}
	svc := NewArchiveService(store, writer, nil, testLogger())

	require.NoError(t, store.Log(ctx, domain.EventTradeCompleted, nil))

	_, err := svc.Run(ctx, 0)
	require.Error(t, err)

	remaining, err := store.List(ctx, domain.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
