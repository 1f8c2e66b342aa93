package audit

import "time"

// Entry is an immutable, append-only audit record.
//
// Invariants:
// - Entries are never updated or deleted.
// - Subject, role and shop id are best-effort: failures before
//   authentication completes have none.
// - Audit persistence must never block the request path; callers treat
//   it as best-effort.
type Entry struct {
	ID        string    `json:"id" db:"id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`

	SubjectID string `json:"subject_id,omitempty" db:"subject_id"`
	Role      string `json:"role,omitempty" db:"role"`
	ShopID    string `json:"shop_id,omitempty" db:"shop_id"`

	// Action names what was attempted, e.g. "authenticate" or the
	// route path for access decisions.
	Action   string   `json:"action" db:"action"`
	Category Category `json:"category" db:"category"`
	Severity Severity `json:"severity" db:"severity"`
	Status   Status   `json:"status" db:"status"`

	// IPAddress is the resolved client IP when available.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`
	Path      string `json:"path,omitempty" db:"path"`

	ErrorMessage string `json:"error_message,omitempty" db:"error_message"`

	// Details is optional JSON for forensic context.
	Details string `json:"details,omitempty" db:"details"`
}

type Category string

const (
	CategoryAuthentication Category = "AUTHENTICATION"
	CategoryAuthorization  Category = "AUTHORIZATION"
	CategoryRateLimit      Category = "RATE_LIMIT"
	CategoryAdmin          Category = "ADMIN"
)

type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)
