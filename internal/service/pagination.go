package service

// pageBounds normalises a 1-based page number and returns it with the
// matching offset.
func pageBounds(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	return page, (page - 1) * size
}

// pageCount is ceil(total / size), never less than zero.
func pageCount(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
