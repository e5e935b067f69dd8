package cmd

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"

	"sessionctl/cli/internal/session"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// startSessionSpinner shows an animated line while the store reports
// IsLoading. It follows the store through Subscribe, so the spinner
// disappears as soon as the operation settles. The returned function stops
// the animation and restores the cursor.
func startSessionSpinner(store *session.Store, text string) func() {
	var loading atomic.Bool
	loading.Store(store.State().IsLoading)
	unsubscribe := store.Subscribe(func(st session.State) {
		loading.Store(st.IsLoading)
	})

	cursor.Hide()
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		cursor.Show()
		return unsubscribe
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(120 * time.Millisecond)
		defer t.Stop()
		i := 0
		for {
			select {
			case <-t.C:
				if !loading.Load() {
					area.Update("")
					continue
				}
				i++
				area.Update(fmt.Sprintf("%s %s", spinnerFrames[i%len(spinnerFrames)], text))
			case <-stop:
				return
			}
		}
	}()

	return func() {
		close(stop)
		wg.Wait()
		unsubscribe()
		_ = area.Stop()
		cursor.Show()
	}
}
