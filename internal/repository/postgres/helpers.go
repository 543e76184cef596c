package postgres

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// normalizePage clamps pagination input and returns page, page size and row offset.
func normalizePage(page, perPage int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > maxPerPage {
		perPage = defaultPerPage
	}
	return page, perPage, (page - 1) * perPage
}

func orderDirection(sortOrder string) string {
	if sortOrder == "asc" {
		return "ASC"
	}
	return "DESC"
}
