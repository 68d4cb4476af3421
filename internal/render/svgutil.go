package render

import "fmt"

// pentagonSVG draws a shogi piece outline in a 100x100 viewBox. Pieces of
// the far side point down.
func pentagonSVG(down bool, fill, stroke string) []byte {
	pts := [5][2]float64{{50, 6}, {82, 22}, {90, 94}, {10, 94}, {18, 22}}
	if down {
		for i := range pts {
			pts[i][1] = 100 - pts[i][1]
		}
	}
	path := fmt.Sprintf("M%g %g L%g %g L%g %g L%g %g L%g %g Z",
		pts[0][0], pts[0][1], pts[1][0], pts[1][1], pts[2][0], pts[2][1],
		pts[3][0], pts[3][1], pts[4][0], pts[4][1])
	return []byte(fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100" viewBox="0 0 100 100">`+
			`<path d="%s" fill="%s" stroke="%s" stroke-width="3"/></svg>`,
		path, fill, stroke))
}
