package tui

import (
	"bytes"
	"fmt"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/zmask/internal/avatar"
)

// artPixels is the thumbnail edge. Each text row shows two pixel rows.
const artPixels = 16

// avatarArt caches the half-block rendering of one avatar PNG.
type avatarArt struct {
	src  []byte
	text string
}

func (a avatarArt) update(png []byte) avatarArt {
	if bytes.Equal(a.src, png) {
		return a
	}
	return avatarArt{src: png, text: halfBlocks(png)}
}

// halfBlocks draws png with "▀": the foreground colours the upper pixel and
// the background the lower one.
func halfBlocks(png []byte) string {
	if len(png) == 0 {
		return ""
	}
	img, err := avatar.Thumbnail(png, artPixels, artPixels)
	if err != nil {
		return ""
	}

	b := img.Bounds()
	rows := make([]string, 0, b.Dy()/2)
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		var row strings.Builder
		for x := b.Min.X; x < b.Max.X; x++ {
			style := lipgloss.NewStyle().Foreground(hexColor(img.At(x, y)))
			if y+1 < b.Max.Y {
				style = style.Background(hexColor(img.At(x, y+1)))
			}
			row.WriteString(style.Render("▀"))
		}
		rows = append(rows, row.String())
	}
	return strings.Join(rows, "\n")
}

func hexColor(c color.Color) lipgloss.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B))
}
