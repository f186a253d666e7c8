package operator

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
)

var (
	boneColor  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	jointColor = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	textColor  = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// PromptLines is the text of the mode selection screen.
var PromptLines = []string{
	"Select Mode:",
	"1: Live Mode",
	"2: Replay Mode",
	"Press 'q' to Quit",
}

// DrawLandmarks draws each hand's skeleton onto img.
func DrawLandmarks(img *gocv.Mat, hands []detector.HandLandmarks) {
	if img == nil || img.Empty() {
		return
	}
	w, h := img.Cols(), img.Rows()

	for i := range hands {
		pts := pixelPoints(&hands[i], w, h)
		for _, c := range detector.Connections {
			gocv.Line(img, pts[c[0]], pts[c[1]], boneColor, 2)
		}
		for _, p := range pts {
			gocv.Circle(img, p, 4, jointColor, -1)
		}
	}
}

func pixelPoints(hand *detector.HandLandmarks, w, h int) [detector.NumLandmarks]image.Point {
	var pts [detector.NumLandmarks]image.Point
	for i, p := range hand.Points {
		pts[i] = image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
	}
	return pts
}

// NewPromptFrame renders the mode selection screen on a black frame.
// The caller closes the returned Mat.
func NewPromptFrame(width, height int) gocv.Mat {
	img := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	for i, line := range PromptLines {
		gocv.PutText(&img, line, image.Pt(50, 100+i*50), gocv.FontHersheySimplex, 1, textColor, 2)
	}
	return img
}
