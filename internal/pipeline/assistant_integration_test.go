//go:build integration

package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/kalambet/larder/internal/dispatch"
	"github.com/kalambet/larder/internal/ollama"
	"github.com/kalambet/larder/internal/storage"
	"github.com/kalambet/larder/internal/tools"
)

func TestTurn_RealOllama(t *testing.T) {
	client := ollama.New("http://localhost:11434")
	if !client.IsRunning(context.Background()) {
		t.Skip("Ollama is not running, skipping integration test")
	}
	if ok, err := client.HasModel(context.Background(), "llama3.2"); err != nil || !ok {
		t.Skip("llama3.2 model not available, skipping integration test")
	}

	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reg := tools.NewRegistry(tools.Deps{Pantry: store, Recipes: store, Meals: store, Grocery: store})
	a := NewAssistant(client, reg, dispatch.New(reg), Config{Model: "llama3.2", MaxToolRounds: 3})

	uc := tools.UserContext{UserID: "integration"}
	start := time.Now()
	res, err := a.Turn(context.Background(), uc, "add a gallon of milk to my shopping list", nil)
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}
	t.Logf("reply: %q tool calls: %d (took %v)", res.Reply, len(res.ToolCalls), time.Since(start))

	lists, err := store.ListGroceryLists(context.Background(), uc.UserID)
	if err != nil {
		t.Fatal(err)
	}
	var n int
	for _, l := range lists {
		n += len(l.Items)
	}
	if n == 0 {
		t.Errorf("no grocery items after turn; result = %+v", res)
	}
}
