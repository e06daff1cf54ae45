package chart

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Locale formats the human-readable parts of a chart. It replaces any
// process-wide locale setting: every projection carries its own.
type Locale struct {
	Tag language.Tag

	months      [12]string
	weekFmt     string
	durationFmt string
	legendTitle string
	doneName    string
	printer     *message.Printer
}

var supported = []language.Tag{
	language.English, // first entry is the fallback
	language.Portuguese,
	language.Spanish,
}

var matcher = language.NewMatcher(supported)

var localeTexts = map[language.Base]struct {
	months      [12]string
	weekFmt     string
	durationFmt string
	legendTitle string
	doneName    string
}{
	language.MustParseBase("en"): {
		months:      [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
		weekFmt:     "Week %d",
		durationFmt: "Duration: %sh",
		legendTitle: "Trainer",
		doneName:    "Done",
	},
	language.MustParseBase("pt"): {
		months:      [12]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"},
		weekFmt:     "Semana %d",
		durationFmt: "Duração: %sh",
		legendTitle: "Formador",
		doneName:    "Concluído",
	},
	language.MustParseBase("es"): {
		months:      [12]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"},
		weekFmt:     "Semana %d",
		durationFmt: "Duración: %sh",
		legendTitle: "Formador",
		doneName:    "Completado",
	},
}

// NewLocale resolves a BCP 47 name such as "pt-PT". Empty, malformed or
// unsupported names fall back to English.
func NewLocale(name string) Locale {
	tag := language.English
	if name != "" {
		if parsed, err := language.Parse(name); err == nil {
			if _, idx, conf := matcher.Match(parsed); conf != language.No {
				tag = supported[idx]
				// Keep the region so number formatting follows it (pt-BR vs pt-PT).
				if base, _ := parsed.Base(); base == mustBase(tag) {
					tag = parsed
				}
			}
		}
	}

	base, _ := tag.Base()
	texts, ok := localeTexts[base]
	if !ok {
		texts = localeTexts[mustBase(language.English)]
	}
	return Locale{
		Tag:         tag,
		months:      texts.months,
		weekFmt:     texts.weekFmt,
		durationFmt: texts.durationFmt,
		legendTitle: texts.legendTitle,
		doneName:    texts.doneName,
		printer:     message.NewPrinter(tag),
	}
}

func mustBase(tag language.Tag) language.Base {
	b, _ := tag.Base()
	return b
}

// DayMonth formats t as "03 Mar" / "03 mar".
func (l Locale) DayMonth(t time.Time) string {
	return fmt.Sprintf("%02d %s", t.Day(), l.months[t.Month()-1])
}

// Week formats a week number label.
func (l Locale) Week(w int) string {
	return fmt.Sprintf(l.weekFmt, w)
}

// Duration formats hours with the locale's decimal separator.
func (l Locale) Duration(hours float64) string {
	return fmt.Sprintf(l.durationFmt, l.printer.Sprintf("%v", number.Decimal(hours)))
}

func (l Locale) LegendTitle() string { return l.legendTitle }

// DoneName is the legend caption for the completed-task group.
func (l Locale) DoneName() string { return l.doneName }
