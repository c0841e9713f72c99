package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/lox/ridewise/internal/demand"
)

const (
	Width  = 720
	Height = 360

	marginX   = 30
	marginTop = 40
	axisY     = Height - 40
	slotWidth = (Width - 2*marginX) / demand.BucketCount
	barWidth  = slotWidth - 12
)

var (
	background = color.RGBA{20, 24, 38, 255}
	barColor   = color.RGBA{72, 164, 255, 255}
	axisColor  = color.RGBA{110, 116, 130, 255}
	textColor  = color.RGBA{220, 222, 228, 255}
)

// Render draws the two-hour demand buckets of s as a PNG bar chart.
func Render(s demand.Summary) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	title := fmt.Sprintf("Predicted demand by hour  (n=%d, avg=%d)", s.Count, s.Average)
	drawText(img, title, marginX, 24, textColor)

	draw.Draw(img, image.Rect(marginX, axisY, Width-marginX, axisY+1), image.NewUniform(axisColor), image.Point{}, draw.Src)

	peak := 0
	for _, v := range s.HourlyBuckets {
		peak = max(peak, v)
	}
	plotHeight := axisY - marginTop - 16

	for i, v := range s.HourlyBuckets {
		x0 := marginX + i*slotWidth + (slotWidth-barWidth)/2
		h := 0
		if peak > 0 {
			h = v * plotHeight / peak
		}
		if h > 0 {
			bar := image.Rect(x0, axisY-h, x0+barWidth, axisY)
			draw.Draw(img, bar, image.NewUniform(barColor), image.Point{}, draw.Src)
		}
		drawText(img, strconv.Itoa(v), x0, axisY-h-4, textColor)
		drawText(img, demand.BucketLabels[i], x0, axisY+18, axisColor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

func drawText(img *image.RGBA, text string, x, y int, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
