package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_LockForIsBoundedAndStable(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(nil)
	locks := make(map[*sync.Mutex]struct{})

	const users = 5000
	for i := range users {
		userID := fmt.Sprintf("user-%d", i)

		l := store.lockFor(userID)
		require.Same(t, l, store.lockFor(userID), userID)
		locks[l] = struct{}{}

		_, err := store.Write(context.Background(), userID, json.RawMessage(`{"n":1}`))
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, len(locks), lockStripes)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, users, count)
}
