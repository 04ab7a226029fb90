package ui

import "image/color"

type Theme struct {
	AppBackground color.RGBA
	TopBar        color.RGBA
	Toolbar       color.RGBA
	Canvas        color.RGBA
	Page          color.RGBA
	Border        color.RGBA
	StatusBar     color.RGBA
	Accent        color.RGBA
	Shadow        color.RGBA

	Text      color.RGBA
	MenuText  color.RGBA
	Muted     color.RGBA
	Selection color.RGBA
	Caret     color.RGBA
	Highlight color.RGBA
	CodeBg    color.RGBA
	QuoteBar  color.RGBA
	Grid      color.RGBA
	Overlay   color.RGBA
	Control   color.RGBA
	Popup     color.RGBA
	PopupHot  color.RGBA
	TopButton color.RGBA
	Error     color.RGBA

	MenuHeightDp    int
	ToolbarHeightDp int
	StatusHeightDp  int
	PageMarginDp    int
}

func DefaultTheme() Theme {
	return Theme{
		AppBackground: color.RGBA{0xF3, 0xF5, 0xF8, 0xFF},
		TopBar:        color.RGBA{0x2B, 0x57, 0x9A, 0xFF},
		Toolbar:       color.RGBA{0xF7, 0xF9, 0xFC, 0xFF},
		Canvas:        color.RGBA{0xE2, 0xE7, 0xEF, 0xFF},
		Page:          color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
		Border:        color.RGBA{0xB2, 0xBF, 0xD0, 0xFF},
		StatusBar:     color.RGBA{0xEA, 0xEF, 0xF6, 0xFF},
		Accent:        color.RGBA{0x2B, 0x57, 0x9A, 0xFF},
		Shadow:        color.RGBA{0xC8, 0xCF, 0xDA, 0xFF},

		Text:      color.RGBA{0x20, 0x20, 0x20, 0xFF},
		MenuText:  color.RGBA{0xF4, 0xF8, 0xFF, 0xFF},
		Muted:     color.RGBA{0x6B, 0x77, 0x8A, 0xFF},
		Selection: color.RGBA{0x3D, 0x7E, 0xE0, 0x55},
		Caret:     color.RGBA{0x13, 0x3E, 0x7A, 0xFF},
		Highlight: color.RGBA{0xFF, 0xE0, 0x66, 0xB0},
		CodeBg:    color.RGBA{0xF1, 0xF3, 0xF6, 0xFF},
		QuoteBar:  color.RGBA{0x9F, 0xB3, 0xCF, 0xFF},
		Grid:      color.RGBA{0xB7, 0xC2, 0xD2, 0xFF},
		Overlay:   color.RGBA{0x2B, 0x57, 0x9A, 0xFF},
		Control:   color.RGBA{0xE8, 0xEF, 0xFA, 0xFF},
		Popup:     color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
		PopupHot:  color.RGBA{0xDC, 0xE8, 0xFA, 0xFF},
		TopButton: color.RGBA{0x3A, 0x68, 0xAE, 0xFF},
		Error:     color.RGBA{0xB7, 0x1C, 0x1C, 0xFF},

		MenuHeightDp:    34,
		ToolbarHeightDp: 38,
		StatusHeightDp:  26,
		PageMarginDp:    24,
	}
}
