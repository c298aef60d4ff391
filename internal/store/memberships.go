// internal/store/memberships.go
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// MembershipStore answers company/role membership questions that event
// payloads cannot carry, such as "all admins of company X".
type MembershipStore struct {
	db *sql.DB
}

func NewMembershipStore(db *sql.DB) *MembershipStore {
	return &MembershipStore{db: db}
}

// CompanyAdmins returns the user ids of every admin or owner of a company.
func (s *MembershipStore) CompanyAdmins(ctx context.Context, companyID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM company_members
		WHERE company_id = $1 AND role IN ('admin', 'owner')`, companyID)
	if err != nil {
		return nil, fmt.Errorf("company admins %s: %w", companyID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
