package regions

import "image"

// components returns the bounding boxes of 8-connected foreground (non-zero)
// pixel groups in binary.
func components(binary *image.Gray) []image.Rectangle {
	b := binary.Bounds()
	w, h := b.Dx(), b.Dy()
	visited := make([]bool, w*h)
	var boxes []image.Rectangle
	stack := make([]int, 0, 64)

	for start := 0; start < w*h; start++ {
		if visited[start] || binary.Pix[(start/w)*binary.Stride+start%w] == 0 {
			continue
		}
		visited[start] = true
		stack = append(stack[:0], start)
		minX, minY := start%w, start/w
		maxX, maxY := minX, minY

		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := idx%w, idx/w
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)

			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w || (dx == 0 && dy == 0) {
						continue
					}
					n := ny*w + nx
					if visited[n] || binary.Pix[ny*binary.Stride+nx] == 0 {
						continue
					}
					visited[n] = true
					stack = append(stack, n)
				}
			}
		}
		boxes = append(boxes, image.Rect(minX, minY, maxX+1, maxY+1))
	}
	return boxes
}
