package session

import "aquascope/internal/view"

func noColorTheme() view.Theme {
	th := view.DefaultTheme()
	th.Styles = nil
	return th
}
