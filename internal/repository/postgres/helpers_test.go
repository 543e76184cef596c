package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CaioWing/filedrop/internal/domain"
)

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, perPage          int
		wantPage, wantPer, off int
	}{
		{0, 0, 1, 20, 0},
		{2, 10, 2, 10, 10},
		{3, 500, 3, 20, 40},
		{-1, 100, 1, 100, 0},
	}
	for _, tt := range tests {
		page, per, off := normalizePage(tt.page, tt.perPage)
		assert.Equal(t, tt.wantPage, page)
		assert.Equal(t, tt.wantPer, per)
		assert.Equal(t, tt.off, off)
	}
}

func TestEventWhere(t *testing.T) {
	where, args := eventWhere(domain.EventFilter{})
	assert.Equal(t, "WHERE 1=1", where)
	assert.Empty(t, args)

	action, name := domain.ActionFileStore, "a.txt"
	where, args = eventWhere(domain.EventFilter{Action: &action, Filename: &name})
	assert.Equal(t, "WHERE 1=1 AND action = $1 AND filename = $2", where)
	assert.Equal(t, []any{"file.store", "a.txt"}, args)
}

func TestOrderDirection(t *testing.T) {
	assert.Equal(t, "ASC", orderDirection("asc"))
	assert.Equal(t, "DESC", orderDirection(""))
	assert.Equal(t, "DESC", orderDirection("desc; DROP TABLE"))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
}
