package view

// Ellipsis marks a gap in the page numbers returned by PageNumbers.
const Ellipsis = 0

const maxVisiblePages = 5

// PageNumbers returns the page buttons to show for current out of total
// pages. Gaps are marked with Ellipsis. Up to five pages are listed in
// full; beyond that the first and last page stay visible around a window
// near current:
//
//	PageNumbers(1, 20)  // [1 2 3 4 0 20]
//	PageNumbers(10, 20) // [1 0 9 10 11 0 20]
//	PageNumbers(19, 20) // [1 0 17 18 19 20]
func PageNumbers(current, total int) []int {
	if total <= 0 {
		return nil
	}

	var pages []int
	switch {
	case total <= maxVisiblePages:
		for i := 1; i <= total; i++ {
			pages = append(pages, i)
		}
	case current <= 3:
		pages = append(pages, 1, 2, 3, 4, Ellipsis, total)
	case current >= total-2:
		pages = append(pages, 1, Ellipsis)
		for i := total - 3; i <= total; i++ {
			pages = append(pages, i)
		}
	default:
		pages = append(pages, 1, Ellipsis, current-1, current, current+1, Ellipsis, total)
	}
	return pages
}

// ClampPage keeps page within [1, totalPages]. With no pages it returns 1.
func ClampPage(page, totalPages int) int {
	if totalPages < 1 || page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}
