package engine

import (
	"context"
	"errors"
	"eventbacktester/types"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownBarField = errors.New("unknown bar field")
	ErrDuplicateBar    = errors.New("duplicate bar timestamp")
	ErrNoSymbols       = errors.New("no symbols configured")
)

// HistoricDataHandler replays preloaded bars one timeline step at a time.
// The timeline is the ascending union of every symbol's timestamps, so a tick
// may carry a new bar for only some of the symbols.
type HistoricDataHandler struct {
	sink        EventSink
	symbols     []string
	ordered     []string
	feeds       map[string][]types.Bar
	next        map[string]int
	history     map[string][]types.Bar
	timeline    []time.Time
	step        int
	fillForward bool

	continueBacktest bool
	curTime          time.Time
}

func NewHistoricDataHandler(sink EventSink, bars map[string][]types.Bar, cfg *DataConfig) (*HistoricDataHandler, error) {
	if len(cfg.symbols) == 0 {
		return nil, ErrNoSymbols
	}
	h := &HistoricDataHandler{
		sink:             sink,
		symbols:          append([]string(nil), cfg.symbols...),
		feeds:            make(map[string][]types.Bar, len(cfg.symbols)),
		next:             make(map[string]int, len(cfg.symbols)),
		history:          make(map[string][]types.Bar, len(cfg.symbols)),
		fillForward:      cfg.fillForward,
		continueBacktest: true,
	}
	h.ordered = append([]string(nil), cfg.symbols...)
	sort.Strings(h.ordered)

	seen := make(map[int64]time.Time)
	for _, symbol := range h.ordered {
		feed, err := prepareFeed(symbol, bars[symbol], cfg.start)
		if err != nil {
			return nil, err
		}
		h.feeds[symbol] = feed
		for _, b := range feed {
			seen[b.Timestamp.UnixNano()] = b.Timestamp
		}
	}
	h.timeline = make([]time.Time, 0, len(seen))
	for _, ts := range seen {
		h.timeline = append(h.timeline, ts)
	}
	sort.Slice(h.timeline, func(i, j int) bool { return h.timeline[i].Before(h.timeline[j]) })
	return h, nil
}

// prepareFeed copies, filters and sorts a symbol's bars and recomputes the
// per-bar returns from the adjusted close.
func prepareFeed(symbol string, bars []types.Bar, start time.Time) ([]types.Bar, error) {
	feed := make([]types.Bar, 0, len(bars))
	for _, b := range bars {
		if !start.IsZero() && b.Timestamp.Before(start) {
			continue
		}
		b.Symbol = symbol
		if b.AdjClose.IsZero() {
			b.AdjClose = b.Close
		}
		feed = append(feed, b)
	}
	sort.SliceStable(feed, func(i, j int) bool { return feed[i].Timestamp.Before(feed[j].Timestamp) })
	for i := range feed {
		if i == 0 {
			feed[i].Returns = decimal.Zero
			continue
		}
		if feed[i].Timestamp.Equal(feed[i-1].Timestamp) {
			return nil, fmt.Errorf("%s at %s: %w", symbol, feed[i].Timestamp.Format(time.RFC3339), ErrDuplicateBar)
		}
		feed[i].Returns = types.PctChange(feed[i-1].AdjClose, feed[i].AdjClose)
	}
	return feed, nil
}

// UpdateBars advances the timeline by one step and enqueues a single
// MarketEvent. Once the timeline is exhausted it only flips ContinueBacktest.
func (h *HistoricDataHandler) UpdateBars() {
	if h.step >= len(h.timeline) {
		h.continueBacktest = false
		return
	}
	ts := h.timeline[h.step]
	h.step++

	for _, symbol := range h.ordered {
		feed := h.feeds[symbol]
		i := h.next[symbol]
		if i < len(feed) && feed[i].Timestamp.Equal(ts) {
			h.history[symbol] = append(h.history[symbol], feed[i])
			h.next[symbol] = i + 1
			continue
		}
		hist := h.history[symbol]
		if h.fillForward && len(hist) > 0 {
			pad := hist[len(hist)-1]
			pad.Timestamp = ts
			pad.Volume = decimal.Zero
			pad.Returns = decimal.Zero
			h.history[symbol] = append(hist, pad)
		}
	}
	h.curTime = ts
	h.sink.Put(types.MarketEvent{Timestamp: ts})
}

func (h *HistoricDataHandler) ContinueBacktest() bool {
	return h.continueBacktest
}

func (h *HistoricDataHandler) Symbols() []string {
	return append([]string(nil), h.symbols...)
}

func (h *HistoricDataHandler) CurrentTime() time.Time {
	return h.curTime
}

// Ticks is the total number of timeline steps the handler will replay.
func (h *HistoricDataHandler) Ticks() int {
	return len(h.timeline)
}

func (h *HistoricDataHandler) LatestBar(symbol string) (types.Bar, bool) {
	hist := h.history[symbol]
	if len(hist) == 0 {
		return types.Bar{}, false
	}
	return hist[len(hist)-1], true
}

// LatestBars returns the last n consumed bars, oldest first. It returns an
// empty slice when fewer than n bars are available yet.
func (h *HistoricDataHandler) LatestBars(symbol string, n int) []types.Bar {
	hist := h.history[symbol]
	if n <= 0 || len(hist) < n {
		return nil
	}
	return append([]types.Bar(nil), hist[len(hist)-n:]...)
}

func (h *HistoricDataHandler) LatestBarValues(symbol string, field types.BarField, n int) ([]float64, error) {
	if _, ok := (types.Bar{}).Value(field); !ok {
		return nil, fmt.Errorf("%q: %w", field, ErrUnknownBarField)
	}
	bars := h.LatestBars(symbol, n)
	if len(bars) == 0 {
		return nil, nil
	}
	values := make([]float64, len(bars))
	for i, b := range bars {
		values[i], _ = b.Value(field)
	}
	return values, nil
}

// LatestPrice is the adjusted close of the latest bar.
func (h *HistoricDataHandler) LatestPrice(symbol string) (decimal.Decimal, bool) {
	b, ok := h.LatestBar(symbol)
	if !ok {
		return decimal.Zero, false
	}
	return b.AdjClose, true
}

// LoadBars pulls every symbol from source, one after another, before the run starts.
func LoadBars(ctx context.Context, source BarSource, symbols []string, start time.Time) (map[string][]types.Bar, error) {
	out := make(map[string][]types.Bar, len(symbols))
	for _, symbol := range symbols {
		bars, err := source.LoadBars(ctx, symbol, start)
		if err != nil {
			return nil, fmt.Errorf("load bars for %s: %w", symbol, err)
		}
		out[symbol] = bars
	}
	return out, nil
}
