package engine

import "backsim/types"

// SliceFeed replays bars held in memory.
type SliceFeed struct {
	bars []types.Bar
	idx  int
}

func NewSliceFeed(bars []types.Bar) *SliceFeed {
	return &SliceFeed{bars: bars}
}

func (f *SliceFeed) Next() (types.Bar, bool) {
	if f.idx >= len(f.bars) {
		return types.Bar{}, false
	}
	bar := f.bars[f.idx]
	f.idx++
	return bar, true
}

func (f *SliceFeed) Len() int {
	return len(f.bars)
}
