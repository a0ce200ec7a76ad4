package bev

// Composite merges warped views onto a single canvas with a first-writer-wins
// policy: a canvas pixel takes the first non-background value seen across the
// views in their given order. Overlapping coverage therefore always resolves
// to the earlier view, making the output independent of how the views were
// produced (sequentially or in parallel) as long as the slice order is the
// configured camera order. Nil entries are views that were dropped upstream.
func Composite(width, height int, views []*Image) *Image {
	canvas := NewImage(width, height)
	for _, view := range views {
		if view == nil {
			continue
		}
		for y := 0; y < height && y < view.Height; y++ {
			for x := 0; x < width && x < view.Width; x++ {
				if !canvas.IsBackground(x, y) {
					continue
				}
				b, g, r := view.BGR(x, y)
				if b == 0 && g == 0 && r == 0 {
					continue
				}
				canvas.SetBGR(x, y, b, g, r)
			}
		}
	}
	return canvas
}
