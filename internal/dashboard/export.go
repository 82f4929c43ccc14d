package dashboard

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
)

// FormatJPEG is only available for the combined dashboard image.
const FormatJPEG = "jpeg"

// combinedGap is the vertical space between stacked charts.
const combinedGap = 30

// CombinedName is the file name, without extension, of the combined image.
const CombinedName = "dashboard"

// CombinedExt returns the file extension used for a combined image format.
func CombinedExt(format string) string {
	if format == FormatJPEG {
		return "jpg"
	}

	return format
}

// RenderCombined stacks the drawable charts of specs top to bottom into one
// image. Charts without data are left out. SVG output wraps the stacked
// bitmap in an <image> element.
func RenderCombined(w io.Writer, specs []ChartSpec, format string, width, height int) error {
	switch format {
	case FormatPNG, FormatJPEG, FormatSVG:
	default:
		return fmt.Errorf("unknown dashboard format %q (want png, jpeg or svg)", format)
	}

	var charts []image.Image

	for _, spec := range specs {
		var buf bytes.Buffer

		err := RenderChart(&buf, spec, FormatPNG, width, height)
		if errors.Is(err, ErrNoChartData) {
			continue
		}

		if err != nil {
			return fmt.Errorf("chart %s: %w", spec.ID, err)
		}

		img, err := png.Decode(&buf)
		if err != nil {
			return fmt.Errorf("decode chart %s: %w", spec.ID, err)
		}

		charts = append(charts, img)
	}

	if len(charts) == 0 {
		return ErrNoChartData
	}

	canvas := stack(charts)

	switch format {
	case FormatJPEG:
		return jpeg.Encode(w, canvas, &jpeg.Options{Quality: 92})
	case FormatSVG:
		return writeSVGImage(w, canvas)
	default:
		return png.Encode(w, canvas)
	}
}

func stack(charts []image.Image) *image.RGBA {
	width, height := 0, combinedGap*(len(charts)-1)

	for _, c := range charts {
		b := c.Bounds()
		width = max(width, b.Dx())
		height += b.Dy()
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	y := 0

	for _, c := range charts {
		b := c.Bounds()
		draw.Draw(canvas, image.Rect(0, y, b.Dx(), y+b.Dy()), c, b.Min, draw.Over)
		y += b.Dy() + combinedGap
	}

	return canvas
}

func writeSVGImage(w io.Writer, img image.Image) error {
	var buf bytes.Buffer

	err := png.Encode(&buf, img)
	if err != nil {
		return err
	}

	b := img.Bounds()

	_, err = fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%[1]d" height="%[2]d" viewBox="0 0 %[1]d %[2]d">
  <rect width="100%%" height="100%%" fill="#ffffff"/>
  <image href="data:image/png;base64,%[3]s" x="0" y="0" width="%[1]d" height="%[2]d"/>
</svg>
`, b.Dx(), b.Dy(), base64.StdEncoding.EncodeToString(buf.Bytes()))

	return err
}
