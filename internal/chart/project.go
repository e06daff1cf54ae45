package chart

import (
	"time"

	"cronograma/internal/schedule"
)

// axisPadding widens the time axis on both sides of the bars.
const axisPadding = 2 * 24 * time.Hour

// Options controls a projection.
type Options struct {
	Title string
	// Locale is a BCP 47 name; empty means English.
	Locale string
	Theme  *Theme
}

// Bar is one task on the timeline.
type Bar struct {
	RowIndex int
	Category string
	Start    time.Time
	End      time.Time
	ColorKey string
	Color    string
	Opacity  float64
	Label    string
	Duration string
	Week     string
}

// Tick is a labelled date on the time axis.
type Tick struct {
	At    time.Time
	Label string
}

// LegendEntry maps a color group to its swatch.
type LegendEntry struct {
	Key   string
	Name  string
	Color string
}

// Spec is everything the renderer needs to draw the timeline.
type Spec struct {
	Title string

	Bars []Bar
	// Categories are unique topics in display order: the first one is drawn
	// at the top of the chart.
	Categories []string

	RangeStart   time.Time
	RangeEnd     time.Time
	GridInterval time.Duration
	Ticks        []Tick

	LegendTitle string
	Legend      []LegendEntry

	Height int
	Theme  Theme
}

// Project maps a built schedule onto the chart description. It fails with
// schedule.ErrEmptySchedule when there is nothing to draw.
func Project(res schedule.Result, opts Options) (Spec, error) {
	if len(res.Tasks) == 0 {
		return Spec{}, schedule.ErrEmptySchedule
	}

	loc := NewLocale(opts.Locale)
	theme := DarkTheme()
	if opts.Theme != nil {
		theme = *opts.Theme
	}

	spec := Spec{
		Title:        opts.Title,
		Bars:         make([]Bar, 0, len(res.Tasks)),
		GridInterval: GridInterval,
		LegendTitle:  loc.LegendTitle(),
		Height:       theme.BaseHeight + theme.RowHeight*len(res.Tasks),
		Theme:        theme,
	}

	colors := make(map[string]string)
	seenCategory := make(map[string]bool)
	minStart, maxEnd := res.Tasks[0].Start, res.Tasks[0].End

	for _, t := range res.Tasks {
		color, ok := colors[t.ColorKey]
		if !ok {
			if t.ColorKey == schedule.DoneColorKey {
				color = doneColor
			} else {
				color = palette[countPalette(spec.Legend)%len(palette)]
			}
			colors[t.ColorKey] = color

			name := t.ColorKey
			if t.ColorKey == schedule.DoneColorKey {
				name = loc.DoneName()
			}
			spec.Legend = append(spec.Legend, LegendEntry{Key: t.ColorKey, Name: name, Color: color})
		}

		if !seenCategory[t.Topic] {
			seenCategory[t.Topic] = true
			spec.Categories = append(spec.Categories, t.Topic)
		}

		spec.Bars = append(spec.Bars, Bar{
			RowIndex: t.RowIndex,
			Category: t.Topic,
			Start:    t.Start,
			End:      t.End,
			ColorKey: t.ColorKey,
			Color:    color,
			Opacity:  t.Opacity,
			Label:    t.Label,
			Duration: loc.Duration(t.DurationHours),
			Week:     loc.Week(t.Week),
		})

		if t.Start.Before(minStart) {
			minStart = t.Start
		}
		if t.End.After(maxEnd) {
			maxEnd = t.End
		}
	}

	spec.RangeStart = minStart.Add(-axisPadding)
	spec.RangeEnd = maxEnd.Add(axisPadding)

	ticks, err := weeklyTicks(spec.RangeStart, spec.RangeEnd)
	if err != nil {
		return Spec{}, err
	}
	for _, at := range ticks {
		spec.Ticks = append(spec.Ticks, Tick{At: at, Label: loc.DayMonth(at)})
	}

	return spec, nil
}

// countPalette counts legend entries that consumed a palette color.
func countPalette(legend []LegendEntry) int {
	n := 0
	for _, e := range legend {
		if e.Key != schedule.DoneColorKey {
			n++
		}
	}
	return n
}
