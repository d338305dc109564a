//go:build windows

package tray

// Icon returns the indicator icon in the format systray expects.
func Icon() []byte { return wrapICO(IconPNG(), iconSize) }
