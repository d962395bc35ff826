// internal/guidance/watch.go
package guidance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nhooyr.io/websocket"
)

// Watch connects to an overlay server's frame feed and calls fn for every
// frame until ctx is done or the server goes away. baseURL is the server's
// http(s) address.
func Watch(ctx context.Context, baseURL string, fn func(Frame)) error {
	wsURL := strings.TrimSuffix(baseURL, "/") + "/ws"
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial overlay feed: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")
	conn.SetReadLimit(1 << 20)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return nil
			}
			return fmt.Errorf("read overlay feed: %w", err)
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			return errors.Join(errors.New("malformed frame"), err)
		}
		fn(f)
	}
}
