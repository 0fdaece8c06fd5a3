package node

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burakmert236/xsgfaucet/common/logger"
)

type fakeHeight struct {
	heights []int64
	calls   atomic.Int32
}

func (f *fakeHeight) GetBlockCount(context.Context) (int64, error) {
	i := int(f.calls.Add(1)) - 1
	if i >= len(f.heights) {
		i = len(f.heights) - 1
	}
	return f.heights[i], nil
}

func TestExplorerGetBlockCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"blocks":[{"height":812},{"height":811}]}`))
	}))
	defer srv.Close()

	height, err := NewExplorer(srv.URL, time.Second).GetBlockCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(812), height)
}

func TestExplorerEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"blocks":[]}`))
	}))
	defer srv.Close()

	_, err := NewExplorer(srv.URL, time.Second).GetBlockCount(context.Background())
	assert.Error(t, err)
}

func TestWaitForSyncPollsUntilCaughtUp(t *testing.T) {
	local := &fakeHeight{heights: []int64{90, 95, 100}}
	remote := &fakeHeight{heights: []int64{100}}

	err := WaitForSync(context.Background(), local, remote, time.Millisecond, logger.Nop())

	require.NoError(t, err)
	assert.Equal(t, int32(3), local.calls.Load())
}

func TestWaitForSyncStopsOnCancel(t *testing.T) {
	local := &fakeHeight{heights: []int64{1}}
	remote := &fakeHeight{heights: []int64{100}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := WaitForSync(ctx, local, remote, time.Millisecond, logger.Nop())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
