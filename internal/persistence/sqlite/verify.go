// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// CheckMode selects the integrity pragma.
type CheckMode string

const (
	// QuickCheck skips index content verification.
	QuickCheck CheckMode = "quick_check"
	FullCheck  CheckMode = "integrity_check"
)

// Check runs the integrity pragma and returns the problems it reports. A
// healthy database yields an empty slice.
func Check(ctx context.Context, db *sql.DB, mode CheckMode) ([]string, error) {
	if mode != FullCheck {
		mode = QuickCheck
	}
	rows, err := db.QueryContext(ctx, "PRAGMA "+string(mode))
	if err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", mode, err)
	}
	defer func() { _ = rows.Close() }()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("sqlite: %s: %w", mode, err)
		}
		if !strings.EqualFold(line, "ok") {
			problems = append(problems, line)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", mode, err)
	}
	return problems, nil
}
