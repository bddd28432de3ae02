// debounce.go — отложенный вызов для частых событий (ввод ключевого слова).
package console

import (
	"sync"
	"time"
)

// DefaultDebounceDelay — задержка поиска по ключевому слову по умолчанию.
const DefaultDebounceDelay = 300 * time.Millisecond

// Debouncer откладывает вызов до паузы в событиях длиной duration.
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
}

// NewDebouncer создаёт Debouncer с заданной задержкой.
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{duration: duration}
}

// Debounce выполняет fn после duration без новых вызовов.
// Каждый новый вызов перезапускает таймер.
func (d *Debouncer) Debounce(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, fn)
}

// Cancel отменяет отложенный вызов, если он ещё не запущен.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
