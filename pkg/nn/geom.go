package nn

type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func MakeRect(x1, y1, x2, y2 int) Rect {
	return Rect{
		X:      x1,
		Y:      y1,
		Width:  x2 - x1,
		Height: y2 - y1,
	}
}

func (r Rect) X2() int {
	return r.X + r.Width
}

func (r Rect) Y2() int {
	return r.Y + r.Height
}

func (r Rect) Area() int {
	return r.Width * r.Height
}

// Clip returns the rectangle clipped to an image of the given size, preserving
// 0 <= x1 <= x2 <= width and 0 <= y1 <= y2 <= height.
// A box that lies entirely outside the image clips to zero area.
func (r Rect) Clip(width, height int) Rect {
	x1 := min(max(r.X, 0), width)
	y1 := min(max(r.Y, 0), height)
	x2 := min(max(r.X2(), x1), width)
	y2 := min(max(r.Y2(), y1), height)
	return MakeRect(x1, y1, x2, y2)
}
