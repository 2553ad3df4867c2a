// Package sqlxrepos implements the domain repositories on PostgreSQL via sqlx.
package sqlxrepos

import (
	"strconv"
	"strings"

	"github.com/edusync/edusync/core"
)

func itoa(n int) string { return strconv.Itoa(n) }

// orderBy renders an ORDER BY clause from the requested ordering, falling
// back to the given default clause.
func orderBy(ordering []core.DBOrdering, dflt string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + dflt
	}
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		parts = append(parts, ord.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
