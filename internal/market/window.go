package market

import "github.com/mercadomaster/economy-engine/internal/model"

// Window is a fixed-capacity ring of candles; appending to a full window
// evicts the oldest bar.
type Window struct {
	buf   []model.Candle
	size  int
	start int
	count int
}

// NewWindow creates an empty window holding at most capacity candles.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = 1
	}
	return &Window{
		buf:  make([]model.Candle, capacity),
		size: capacity,
	}
}

func (w *Window) Append(c model.Candle) {
	if w.count < w.size {
		w.buf[(w.start+w.count)%w.size] = c
		w.count++
		return
	}
	// overwrite oldest
	w.buf[w.start] = c
	w.start = (w.start + 1) % w.size
}

// Last returns the newest candle.
func (w *Window) Last() (model.Candle, bool) {
	if w.count == 0 {
		return model.Candle{}, false
	}
	return w.buf[(w.start+w.count-1)%w.size], true
}

// Candles returns a copy of the window, oldest first.
func (w *Window) Candles() []model.Candle {
	out := make([]model.Candle, w.count)
	for i := 0; i < w.count; i++ {
		out[i] = w.buf[(w.start+i)%w.size]
	}
	return out
}

func (w *Window) Len() int { return w.count }
func (w *Window) Cap() int { return w.size }
