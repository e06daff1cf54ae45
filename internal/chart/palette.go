package chart

// Qualitative palette assigned to color groups in order of first appearance.
var palette = []string{
	"#636EFA", "#EF553B", "#00CC96", "#AB63FA", "#FFA15A",
	"#19D3F3", "#FF6692", "#B6E880", "#FF97FF", "#FECB52",
}

// doneColor is forced for the completed-task group.
const doneColor = "#808080"

// Theme holds the dark styling applied to the timeline.
type Theme struct {
	FontFamily   string
	FontSize     int
	TitleSize    int
	TextSize     int
	FontColor    string
	Background   string
	GridColor    string
	HoverBg      string
	BarLineColor string
	BarLineWidth int
	BaseOpacity  float64
	MarginLeft   int
	MarginRight  int
	MarginTop    int
	MarginBottom int
	BaseHeight   int
	RowHeight    int
	LegendWidth  int
}

// DarkTheme is the default dashboard look.
func DarkTheme() Theme {
	return Theme{
		FontFamily:   "Arial",
		FontSize:     14,
		TitleSize:    26,
		TextSize:     12,
		FontColor:    "#eee",
		Background:   "#222",
		GridColor:    "#444",
		HoverBg:      "#333",
		BarLineColor: "white",
		BarLineWidth: 1,
		BaseOpacity:  0.9,
		MarginLeft:   20,
		MarginRight:  20,
		MarginTop:    100,
		MarginBottom: 50,
		BaseHeight:   500,
		RowHeight:    45,
		LegendWidth:  200,
	}
}
