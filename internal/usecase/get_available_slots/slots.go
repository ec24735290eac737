package get_available_slots

import (
	"iter"
	"sort"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

// interval полуоткрытый интервал в секундах от полуночи
type interval struct {
	start, end int
}

// Slots ленивая конечная последовательность времён начала.
// Каждый вызов All начинает обход заново, поэтому её можно перечитывать и листать страницами.
type Slots struct {
	free     []interval
	duration int // секунды
	notAfter int // старты <= notAfter отбрасываются; -1, если фильтра нет
}

func emptySlots() *Slots {
	return &Slots{notAfter: -1}
}

// All перечисляет времена начала по порядку
func (s *Slots) All() iter.Seq[types.TimeString] {
	return func(yield func(types.TimeString) bool) {
		if s.duration <= 0 {
			return
		}
		for _, iv := range s.free {
			for start := iv.start; start+s.duration <= iv.end; start += s.duration {
				if start <= s.notAfter {
					continue
				}
				slot, err := types.NewTimeStringFromSeconds(start)
				if err != nil {
					return
				}
				if !yield(slot) {
					return
				}
			}
		}
	}
}

// Page возвращает страницу (с 1) и признак наличия следующей
func (s *Slots) Page(page, pageSize int) ([]types.TimeString, domain.PageInfo) {
	page, pageSize = domain.NormalizePage(page, pageSize)
	skip := (page - 1) * pageSize

	items := make([]types.TimeString, 0, pageSize)
	info := domain.PageInfo{Page: page, PageSize: pageSize}

	i := 0
	for slot := range s.All() {
		switch {
		case i < skip:
		case len(items) < pageSize:
			items = append(items, slot)
		default:
			info.HasMore = true
			return items, info
		}
		i++
	}

	return items, info
}

// Collect все слоты разом
func (s *Slots) Collect() []types.TimeString {
	out := make([]types.TimeString, 0)
	for slot := range s.All() {
		out = append(out, slot)
	}
	return out
}

// DurationMinutes длительность слота
func (s *Slots) DurationMinutes() int {
	return s.duration / 60
}

// subtractOccupied вычитает занятые интервалы из рабочих.
// Результат упорядочен и не содержит пересечений.
func subtractOccupied(working, occupied []interval) []interval {
	sort.Slice(working, func(i, j int) bool { return working[i].start < working[j].start })
	sort.Slice(occupied, func(i, j int) bool { return occupied[i].start < occupied[j].start })

	free := make([]interval, 0, len(working))
	for _, w := range working {
		cursor := w.start
		for _, o := range occupied {
			if o.end <= cursor || o.start >= w.end {
				continue
			}
			if o.start > cursor {
				free = append(free, interval{start: cursor, end: o.start})
			}
			if o.end > cursor {
				cursor = o.end
			}
			if cursor >= w.end {
				break
			}
		}
		if cursor < w.end {
			free = append(free, interval{start: cursor, end: w.end})
		}
	}
	return free
}

func toInterval(start, end types.TimeString) (interval, error) {
	s, err := start.Seconds()
	if err != nil {
		return interval{}, err
	}
	e, err := end.Seconds()
	if err != nil {
		return interval{}, err
	}
	return interval{start: s, end: e}, nil
}
