package desktop

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"sort"
)

const (
	// coarseFactor is the downscale used for the first search pass
	coarseFactor = 4
	// coarseCandidates is how many coarse hits get refined at full resolution
	coarseCandidates = 5
)

type hit struct {
	x, y  int
	score float64
}

type grayImage struct {
	width  int
	height int
	pix    []float64
}

func (g *grayImage) at(x, y int) float64 {
	return g.pix[y*g.width+x]
}

func loadGray(path string) (*grayImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return toGray(img), nil
}

func toGray(img image.Image) *grayImage {
	b := img.Bounds()
	g := &grayImage{width: b.Dx(), height: b.Dy(), pix: make([]float64, b.Dx()*b.Dy())}
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			r, gr, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			g.pix[y*g.width+x] = (0.299*float64(r) + 0.587*float64(gr) + 0.114*float64(bl)) / 257
		}
	}
	return g
}

func downscale(g *grayImage, f int) *grayImage {
	out := &grayImage{width: g.width / f, height: g.height / f}
	out.pix = make([]float64, out.width*out.height)
	area := float64(f * f)
	for y := 0; y < out.height; y++ {
		for x := 0; x < out.width; x++ {
			var sum float64
			for dy := 0; dy < f; dy++ {
				for dx := 0; dx < f; dx++ {
					sum += g.at(x*f+dx, y*f+dy)
				}
			}
			out.pix[y*out.width+x] = sum / area
		}
	}
	return out
}

// ncc is the zero-mean normalized cross-correlation of tmpl placed at (ox, oy)
func ncc(screen, tmpl *grayImage, tmplMean, tmplNorm float64, ox, oy int) float64 {
	n := float64(tmpl.width * tmpl.height)
	var sum float64
	for y := 0; y < tmpl.height; y++ {
		for x := 0; x < tmpl.width; x++ {
			sum += screen.at(ox+x, oy+y)
		}
	}
	mean := sum / n

	var cross, norm float64
	for y := 0; y < tmpl.height; y++ {
		for x := 0; x < tmpl.width; x++ {
			s := screen.at(ox+x, oy+y) - mean
			t := tmpl.at(x, y) - tmplMean
			cross += s * t
			norm += s * s
		}
	}
	if norm == 0 {
		return 0
	}
	return cross / math.Sqrt(norm*tmplNorm)
}

func stats(g *grayImage) (mean, norm float64) {
	for _, v := range g.pix {
		mean += v
	}
	mean /= float64(len(g.pix))
	for _, v := range g.pix {
		norm += (v - mean) * (v - mean)
	}
	return mean, norm
}

func search(screen, tmpl *grayImage, x0, y0, x1, y1 int) []hit {
	mean, norm := stats(tmpl)
	if norm == 0 {
		return nil
	}
	hits := make([]hit, 0, (x1-x0+1)*(y1-y0+1))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			hits = append(hits, hit{x: x, y: y, score: ncc(screen, tmpl, mean, norm, x, y)})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	return hits
}

// matchTemplate returns the top-left corner of the best match and its score in [0, 1].
// A template without contrast never matches.
func matchTemplate(screen, tmpl *grayImage) (int, int, float64) {
	maxX, maxY := screen.width-tmpl.width, screen.height-tmpl.height
	if maxX < 0 || maxY < 0 || len(tmpl.pix) == 0 {
		return 0, 0, 0
	}

	f := coarseFactor
	if tmpl.width/f < 4 || tmpl.height/f < 4 {
		return best(search(screen, tmpl, 0, 0, maxX, maxY))
	}

	cs, ct := downscale(screen, f), downscale(tmpl, f)
	coarse := search(cs, ct, 0, 0, cs.width-ct.width, cs.height-ct.height)
	if len(coarse) > coarseCandidates {
		coarse = coarse[:coarseCandidates]
	}

	var refined []hit
	for _, c := range coarse {
		x0, y0 := max(c.x*f-f, 0), max(c.y*f-f, 0)
		x1, y1 := min(c.x*f+f, maxX), min(c.y*f+f, maxY)
		refined = append(refined, search(screen, tmpl, x0, y0, x1, y1)...)
	}
	sort.SliceStable(refined, func(i, j int) bool { return refined[i].score > refined[j].score })
	return best(refined)
}

func best(hits []hit) (int, int, float64) {
	if len(hits) == 0 {
		return 0, 0, 0
	}
	return hits[0].x, hits[0].y, math.Max(hits[0].score, 0)
}
