// Package paginate packs measured blocks into pages bounded by a capacity.
//
// The algorithm is greedy and runs in one pass over the input: blocks
// accumulate onto the current page until the next block would overflow it,
// at which point the page is flushed and a new one begins. Block order is
// always preserved and blocks are never split across pages. Packing the same
// input twice yields the same page list.
package paginate

// Block is one measured block ready for packing. Index is the block's stable
// position in the source document; Height is its measured height in the same
// units as the page capacity.
type Block struct {
	Index  int
	Height float64
}

// Page is an ordered group of blocks whose heights fit the capacity.
// The one exception is a single block taller than the capacity itself: it is
// placed alone on its own page and allowed to overflow visually rather than
// being split or rejected.
type Page struct {
	Index  int
	Blocks []Block
}

// HeightSum returns the summed height of the page's blocks.
func (p Page) HeightSum() float64 {
	total := 0.0
	for _, b := range p.Blocks {
		total += b.Height
	}
	return total
}

// Paginator packs blocks into pages of a fixed capacity.
type Paginator struct {
	Capacity float64
}

// NewPaginator creates a paginator for the given usable page height.
func NewPaginator(capacity float64) *Paginator {
	return &Paginator{Capacity: capacity}
}

// Paginate distributes the blocks into pages. The input slice is not
// modified; the returned pages reference copies of the input blocks.
func (p *Paginator) Paginate(blocks []Block) []Page {
	var pages []Page
	var current []Block
	currentHeight := 0.0

	flush := func() {
		if len(current) == 0 {
			return
		}
		pages = append(pages, Page{Index: len(pages), Blocks: current})
		current = nil
		currentHeight = 0
	}

	for _, b := range blocks {
		if currentHeight+b.Height > p.Capacity && len(current) > 0 {
			flush()
		}
		current = append(current, b)
		currentHeight += b.Height
	}
	flush()

	return pages
}

// Flatten concatenates the blocks of all pages back into one sequence, in
// page order.
func Flatten(pages []Page) []Block {
	var out []Block
	for _, page := range pages {
		out = append(out, page.Blocks...)
	}
	return out
}
