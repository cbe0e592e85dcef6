package mock

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/fwojciec/ochat"
)

// NewMemoryStore returns a Store whose function fields are backed by maps.
// It honours the ochat.Store contract closely enough to drive a Session
// without a database. Individual fields can still be replaced to inject
// failures.
func NewMemoryStore() *Store {
	var (
		mu       sync.Mutex
		nextConv ochat.ConversationID
		nextTurn int64
		convs    = map[ochat.ConversationID][]ochat.Turn{}
	)
	return &Store{
		CreateConversationFn: func(ctx context.Context) (ochat.ConversationID, error) {
			mu.Lock()
			defer mu.Unlock()
			nextConv++
			convs[nextConv] = nil
			return nextConv, nil
		},
		EnsureConversationFn: func(ctx context.Context, id ochat.ConversationID) error {
			mu.Lock()
			defer mu.Unlock()
			if _, ok := convs[id]; !ok {
				convs[id] = nil
			}
			nextConv = max(nextConv, id)
			return nil
		},
		AppendTurnFn: func(ctx context.Context, id ochat.ConversationID, role ochat.Role, content string) (ochat.Turn, error) {
			mu.Lock()
			defer mu.Unlock()
			if _, ok := convs[id]; !ok {
				return ochat.Turn{}, &ochat.StorageError{Op: "append turn", Err: ochat.ErrConversationNotFound}
			}
			nextTurn++
			turn := ochat.Turn{
				ID:             nextTurn,
				ConversationID: id,
				Role:           role,
				Content:        content,
				CreatedAt:      time.Unix(0, nextTurn),
			}
			convs[id] = append(convs[id], turn)
			return turn, nil
		},
		LoadTurnsFn: func(ctx context.Context, id ochat.ConversationID) ([]ochat.Turn, error) {
			mu.Lock()
			defer mu.Unlock()
			turns := slices.Clone(convs[id])
			if turns == nil {
				turns = []ochat.Turn{}
			}
			return turns, nil
		},
		ListConversationsFn: func(ctx context.Context) ([]ochat.ConversationID, error) {
			mu.Lock()
			defer mu.Unlock()
			ids := make([]ochat.ConversationID, 0, len(convs))
			for id := range convs {
				ids = append(ids, id)
			}
			slices.Sort(ids)
			return ids, nil
		},
		DeleteConversationFn: func(ctx context.Context, id ochat.ConversationID) error {
			mu.Lock()
			defer mu.Unlock()
			delete(convs, id)
			return nil
		},
		PreviewFn: func(ctx context.Context, id ochat.ConversationID) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			for _, t := range convs[id] {
				if t.Role == ochat.RoleAssistant {
					return ochat.Preview(t.Content), nil
				}
			}
			return ochat.NoResponsePreview, nil
		},
	}
}
