// Package countdown раскладывает время до дедлайна конкурса на дни, часы,
// минуты и секунды.
package countdown

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	msPerSecond = int64(1000)
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

// TimeRemaining оставшееся до дедлайна время по компонентам.
type TimeRemaining struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
}

func (t TimeRemaining) IsZero() bool {
	return t == TimeRemaining{}
}

// String выводит остаток как "DD:HH:MM:SS".
func (t TimeRemaining) String() string {
	return fmt.Sprintf("%02d:%02d:%02d:%02d", t.Days, t.Hours, t.Minutes, t.Seconds)
}

// Remaining возвращает остаток до deadline на момент now и признак того, что
// дедлайн наступил. После наступления все компоненты нулевые.
//
// Сравнение идёт по настенным часам: дедлайн приходит из API календарной датой,
// поэтому монотонная часть now отбрасывается.
func Remaining(deadline, now time.Time) (TimeRemaining, bool) {
	distance := deadline.Round(0).Sub(now.Round(0)).Milliseconds()
	if distance <= 0 {
		return TimeRemaining{}, true
	}
	return TimeRemaining{
		Days:    distance / msPerDay,
		Hours:   (distance % msPerDay) / msPerHour,
		Minutes: (distance % msPerHour) / msPerMinute,
		Seconds: (distance % msPerMinute) / msPerSecond,
	}, false
}

// Tracker защёлкивает состояние "завершён": после первого тика за дедлайном все
// следующие тики отдают ended и нулевой остаток, даже если часы ушли назад.
type Tracker struct {
	mu       sync.Mutex
	deadline time.Time
	ended    bool
}

func NewTracker(deadline time.Time) *Tracker {
	return &Tracker{deadline: deadline}
}

// MarkEnded принудительно завершает отсчёт, например после объявления победителя.
func (t *Tracker) MarkEnded() {
	t.mu.Lock()
	t.ended = true
	t.mu.Unlock()
}

func (t *Tracker) Ended() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ended
}

func (t *Tracker) Tick(now time.Time) (TimeRemaining, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ended {
		return TimeRemaining{}, true
	}
	remaining, ended := Remaining(t.deadline, now)
	if ended {
		t.ended = true
	}
	return remaining, ended
}

// Clock текущее время по настенным часам.
type Clock func() time.Time

// Run вызывает fn сразу и затем каждые interval, пока не отменён ctx или трекер
// не завершился. Последний тик с ended доставляется до выхода из Run.
func Run(ctx context.Context, tracker *Tracker, clock Clock, interval time.Duration, fn func(TimeRemaining, bool)) {
	if clock == nil {
		clock = time.Now
	}
	remaining, ended := tracker.Tick(clock())
	fn(remaining, ended)
	if ended {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining, ended := tracker.Tick(clock())
			fn(remaining, ended)
			if ended {
				return
			}
		}
	}
}
