package domain

import "time"

// Mailbox is created together with the user so the rest of the platform can
// deliver mail immediately. Quota comes from org settings at creation time.
type Mailbox struct {
	ID         string
	UserID     string
	QuotaBytes int64
	UsedBytes  int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
