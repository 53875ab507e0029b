package tui

import (
	"context"
	"sync"
)

var abortCtx struct {
	sync.RWMutex
	ctx context.Context
}

// SetAbortContext installs the context whose cancellation (Ctrl+C,
// SIGTERM) tears down whatever tview app happens to be on screen. One
// process-wide context keeps every screen on the same shutdown path.
func SetAbortContext(ctx context.Context) {
	abortCtx.Lock()
	abortCtx.ctx = ctx
	abortCtx.Unlock()
}

// bindAbortContext stops app when the installed context fires. A nil
// context means nobody called SetAbortContext; the app then only exits
// through its own key handling.
func bindAbortContext(app *App) {
	abortCtx.RLock()
	ctx := abortCtx.ctx
	abortCtx.RUnlock()
	if ctx == nil {
		return
	}
	go func() {
		<-ctx.Done()
		app.Stop()
	}()
}
