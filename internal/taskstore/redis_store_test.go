package taskstore

// ============================================================================
// Redis Store 測試檔案
// 職責：以記憶體內 Redis 驗證 SetNX 建立語義與索引列舉
// ============================================================================

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcbforge/kicad-mcp/pkg/types"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb)
}

// TestRedisStoreCreateAndLoad 測試任務寫入與讀回
func TestRedisStoreCreateAndLoad(t *testing.T) {
	store := newTestRedisStore(t)
	task := sampleTask("route_demo-board_20260830_120000")

	require.NoError(t, store.Create(task))

	loaded, err := store.Load(task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, loaded.ID)
	assert.Equal(t, types.StatusRunning, loaded.Status)
}

// TestRedisStoreCreateDuplicate 測試 SetNX 拒絕重複建立
func TestRedisStoreCreateDuplicate(t *testing.T) {
	store := newTestRedisStore(t)
	task := sampleTask("route_demo-board_20260830_120000")

	require.NoError(t, store.Create(task))
	assert.ErrorIs(t, store.Create(task), ErrTaskExists)
}

// TestRedisStoreLoadMissing 測試讀取不存在的任務
func TestRedisStoreLoadMissing(t *testing.T) {
	store := newTestRedisStore(t)

	_, err := store.Load("route_ghost_20260830_000000")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

// TestRedisStoreListAll 測試索引列舉
func TestRedisStoreListAll(t *testing.T) {
	store := newTestRedisStore(t)

	require.NoError(t, store.Create(sampleTask("route_a_20260830_120000")))
	require.NoError(t, store.Create(sampleTask("route_b_20260830_120001")))

	tasks, err := store.ListAll()
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}
