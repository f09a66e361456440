package ui

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveThemeExplicit(t *testing.T) {
	require.Equal(t, "dark", ResolveTheme("dark"))
	require.Equal(t, "light", ResolveTheme("light"))
}

func TestResolveThemeSystemAlwaysLands(t *testing.T) {
	// OS detection may or may not be available here; either way the
	// result must be a concrete palette name.
	got := ResolveTheme("system")
	require.Contains(t, []string{"dark", "light"}, got)
}

func TestInitThemeSwitchesPalette(t *testing.T) {
	t.Cleanup(func() { InitTheme("dark") })

	InitTheme("light")
	require.Equal(t, lightPalette.Bg, ColorBg)
	require.Equal(t, lightPalette.Red, ColorRed)
	require.Equal(t, lightPalette.Red, statusColors["needs_input"])

	InitTheme("dark")
	require.Equal(t, darkPalette.Bg, ColorBg)
	require.Equal(t, darkPalette.Red, statusColors["needs_input"])
}
