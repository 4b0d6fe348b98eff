package maillist

// Rect is the vertical extent of a laid-out element in screen rows.
// Bottom is exclusive.
type Rect struct {
	Top    int
	Bottom int
}

// Range is a half-open index range [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of indices in the range.
func (r Range) Len() int { return r.End - r.Start }

// Empty reports whether the range holds no indices.
func (r Range) Empty() bool { return r.End <= r.Start }

// laidOut reports whether r has been positioned at all.
func (r Rect) laidOut() bool { return r.Top != 0 || r.Bottom != 0 }

// Scan returns the contiguous run of rows that overlap viewport. A row is
// visible when it straddles the top edge, straddles the bottom edge, or
// lies fully inside. Rows are assumed to be ordered top to bottom, so the
// scan stops at the first invisible row after the run starts. Rows beyond
// windowLen are ignored and a viewport that is not laid out yields an
// empty range.
func Scan(viewport Rect, rows []Rect, windowLen int) Range {
	if !viewport.laidOut() {
		return Range{}
	}

	var r Range
	inViewport := false
	for i, row := range rows {
		if i >= windowLen {
			break
		}

		partialTop := row.Top < viewport.Top && row.Bottom > viewport.Top
		partialBottom := row.Top < viewport.Bottom && row.Bottom > viewport.Bottom
		inside := row.laidOut() && row.Top >= viewport.Top && row.Bottom <= viewport.Bottom

		if partialTop || partialBottom || inside {
			if !inViewport {
				r.Start = i
				inViewport = true
			}
			r.End = i + 1
		} else if inViewport {
			break
		}
	}
	return r
}

// RowRects lays out n rows of rowHeight starting at top, with the list
// scrolled down by scrollY rows.
func RowRects(top, rowHeight, scrollY, n int) []Rect {
	rects := make([]Rect, n)
	for i := range rects {
		t := top + i*rowHeight - scrollY
		rects[i] = Rect{Top: t, Bottom: t + rowHeight}
	}
	return rects
}
