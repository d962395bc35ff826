// internal/agent/operator.go
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

var errOperatorTimeout = errors.New("operator did not act before the timeout")

// operatorScript resolves once the operator produces one of events anywhere
// in the page. Listeners sit in the capture phase so page handlers that stop
// propagation cannot hide the event. A previous, abandoned wait is cancelled
// first so listeners never pile up.
func operatorScript(events []string) string {
	return fmt.Sprintf(`new Promise(resolve => {
	if (window.__pathfinderOperatorCancel) { window.__pathfinderOperatorCancel(); }
	const events = %s;
	const cleanup = () => {
		events.forEach(name => document.removeEventListener(name, handler, true));
		window.__pathfinderOperatorCancel = null;
	};
	const handler = ev => { cleanup(); resolve(ev.type); };
	window.__pathfinderOperatorCancel = () => { cleanup(); resolve('cancelled'); };
	events.forEach(name => document.addEventListener(name, handler, true));
})`, jsStringArray(events))
}

const cancelOperatorScript = `(() => { if (window.__pathfinderOperatorCancel) { window.__pathfinderOperatorCancel(); } return true; })()`

// awaitOperator blocks until the operator acts in the page. With no
// configured timeout it waits as long as ctx allows.
func (e *Executor) awaitOperator(ctx context.Context, events []string) error {
	waitCtx := ctx
	if t := e.guideCfg.OperatorTimeout; t > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	var got string
	err := e.page.RunActions(waitCtx, chromedp.Evaluate(operatorScript(events), &got, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true).WithReturnByValue(true)
	}))
	if err == nil {
		e.logger.Debug("Operator acted.", zap.String("event", got))
		return nil
	}

	// Tear down the listeners left behind by the abandoned promise.
	var ok bool
	if cerr := e.page.RunBackgroundActions(ctx, chromedp.Evaluate(cancelOperatorScript, &ok)); cerr != nil {
		e.logger.Debug("Failed to cancel operator listeners.", zap.Error(cerr))
	}

	if ctx.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return errOperatorTimeout
	}
	return fmt.Errorf("waiting for operator: %w", err)
}

func jsStringArray(items []string) string {
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}
