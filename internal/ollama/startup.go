package ollama

import (
	"context"
	"fmt"
	"io"
	"time"
)

// EnsureReady checks that Ollama is running and the chat model is available,
// pulling it with progress written to w when missing. The model is then
// warmed with a trivial request so the first assistant turn does not pay
// the cold-load penalty. A failed warm-up is reported but not returned.
func EnsureReady(ctx context.Context, c *Client, model string, w io.Writer) error {
	versionCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	version, err := c.Version(versionCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("Ollama is not running at %s (%v). Start it with: ollama serve", c.baseURL, err)
	}
	fmt.Fprintf(w, "ollama %s at %s\n", version, c.baseURL)

	installed, err := c.HasModel(ctx, model)
	if err != nil {
		return fmt.Errorf("checking for model %s: %w", model, err)
	}
	if !installed {
		fmt.Fprintf(w, "model %s: pulling...\n", model)
		last := ""
		err := c.PullModel(ctx, model, func(p PullProgress) {
			line := p.Status
			if pct := p.Percent(); pct >= 0 {
				line = fmt.Sprintf("%s %.0f%%", p.Status, pct)
			}
			if line != last {
				fmt.Fprintf(w, "  %s\n", line)
				last = line
			}
		})
		if err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "model %s: ready\n", model)

	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := c.Chat(warmCtx, model, []Message{{Role: "user", Content: "ping"}}, nil); err != nil {
		fmt.Fprintf(w, "model %s: warm-up failed (non-fatal): %v\n", model, err)
	} else {
		fmt.Fprintf(w, "model %s: warm\n", model)
	}
	return nil
}
