// internal/store/contacts.go
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Contact holds the delivery destinations known for a user. A missing
// destination disables the corresponding channel for that user; it is not
// an error.
type Contact struct {
	UserID       string
	Email        string
	Phone        string
	DeviceTokens []string
}

// ContactDirectory resolves user ids to delivery destinations.
type ContactDirectory struct {
	db *sql.DB
}

func NewContactDirectory(db *sql.DB) *ContactDirectory {
	return &ContactDirectory{db: db}
}

// Lookup returns the contact record for a user. An unknown user id is an
// error; empty email/phone/token fields are not.
func (d *ContactDirectory) Lookup(ctx context.Context, userID string) (Contact, error) {
	c := Contact{UserID: userID}

	var email, phone sql.NullString
	err := d.db.QueryRowContext(ctx,
		`SELECT email, phone FROM users WHERE id = $1`, userID).
		Scan(&email, &phone)
	if err == sql.ErrNoRows {
		return c, fmt.Errorf("unknown user %s", userID)
	}
	if err != nil {
		return c, fmt.Errorf("lookup contact %s: %w", userID, err)
	}
	c.Email = email.String
	c.Phone = phone.String

	rows, err := d.db.QueryContext(ctx,
		`SELECT token FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return c, fmt.Errorf("lookup device tokens %s: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return c, fmt.Errorf("scan device token: %w", err)
		}
		c.DeviceTokens = append(c.DeviceTokens, token)
	}
	return c, rows.Err()
}
