package breaker

import "time"

// WindowStats holds the aggregated counters over the trailing window.
type WindowStats struct {
	Successes uint64
	Failures  uint64
	Rejects   uint64
	Timeouts  uint64
}

// Total returns the number of real call outcomes in the window.
// Rejects are excluded because no network call was made.
func (s WindowStats) Total() uint64 {
	return s.Successes + s.Failures + s.Timeouts
}

// ErrorRate returns the fraction of failed outcomes (failures + timeouts)
// over all real call outcomes in the window. Returns 0 when the window is empty.
func (s WindowStats) ErrorRate() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(s.Failures+s.Timeouts) / float64(total)
}

// window implements approximate sliding-window counting with a fixed number
// of rotating buckets. Counters older than the window duration are discarded
// bucket by bucket as time advances. Not safe for concurrent use; callers
// hold the owning record's lock.
type window struct {
	buckets    []WindowStats
	bucketSpan time.Duration
	current    int
	currentEnd time.Time
}

func newWindow(size time.Duration, buckets int, now time.Time) *window {
	if buckets <= 0 {
		buckets = 10
	}
	if size <= 0 {
		size = 60 * time.Second
	}
	span := size / time.Duration(buckets)
	return &window{
		buckets:    make([]WindowStats, buckets),
		bucketSpan: span,
		currentEnd: now.Add(span),
	}
}

// rotate advances the ring so that the current bucket covers now,
// zeroing every bucket that has fallen out of the window.
func (w *window) rotate(now time.Time) {
	if now.Before(w.currentEnd) {
		return
	}
	elapsed := now.Sub(w.currentEnd)
	steps := int(elapsed/w.bucketSpan) + 1
	if steps >= len(w.buckets) {
		for i := range w.buckets {
			w.buckets[i] = WindowStats{}
		}
		w.current = 0
		w.currentEnd = now.Add(w.bucketSpan)
		return
	}
	for i := 0; i < steps; i++ {
		w.current = (w.current + 1) % len(w.buckets)
		w.buckets[w.current] = WindowStats{}
	}
	w.currentEnd = w.currentEnd.Add(time.Duration(steps) * w.bucketSpan)
}

func (w *window) addSuccess(now time.Time) {
	w.rotate(now)
	w.buckets[w.current].Successes++
}

func (w *window) addFailure(now time.Time) {
	w.rotate(now)
	w.buckets[w.current].Failures++
}

func (w *window) addTimeout(now time.Time) {
	w.rotate(now)
	w.buckets[w.current].Timeouts++
}

func (w *window) addReject(now time.Time) {
	w.rotate(now)
	w.buckets[w.current].Rejects++
}

func (w *window) stats(now time.Time) WindowStats {
	w.rotate(now)
	var total WindowStats
	for _, b := range w.buckets {
		total.Successes += b.Successes
		total.Failures += b.Failures
		total.Rejects += b.Rejects
		total.Timeouts += b.Timeouts
	}
	return total
}
