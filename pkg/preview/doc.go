// Package preview runs a page's scroll effects in the terminal.
//
// The page's sections are laid out one screen each. The mouse wheel and
// the arrow and page keys scroll the simulated document; the same
// scroll.Hub and effects that serve browser sessions run against a
// Bubble Tea backed Surface and their patches are applied to a State
// that the view renders.
//
//	page, _ := store.Page("/")
//	err := preview.Run(ctx, page)
package preview
