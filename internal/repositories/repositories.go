// package repositories provides persistence layer implementations for all model types.
//
// Each repository implements models.Repository[T] for a specific entity type,
// handling CRUD operations, soft deletes, and sequence generation.
package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/moody/internal/shared"
)

// sequenced lists the tables with a "<table>_sequence" counter row.
var sequenced = map[string]bool{
	"runs": true,
}

// NextSequence increments and returns the counter for table.
//
// Sequence numbers are the short handles users type (`moody history show 42`); IDs stay internal.
func NextSequence(db *sql.DB, table string) (int, error) {
	if !sequenced[table] {
		return 0, fmt.Errorf("%w: table %q has no sequence", shared.ErrInvalidArgument, table)
	}

	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)

	var sequence int
	if err := db.QueryRow(query).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to increment %s sequence: %w", table, err)
	}
	return sequence, nil
}
