package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit entries.
//
// It MUST be append-only. Entries are never updated or deleted.
type Repository interface {
	Append(ctx context.Context, e Entry) error
}

var ErrInvalidEntry = errors.New("audit: invalid entry")

// Service writes audit entries through a Repository.
//
// The convenience emitters (AuthSuccess, AuthFailure, AccessDenied,
// RateLimitExceeded) keep field population consistent across call
// sites and never fail the caller: a broken sink drops the entry with
// an internal warning.
type Service struct {
	repo  Repository
	log   *slog.Logger
	clock func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, log: log, clock: time.Now}
}

// Record validates, stamps and appends one entry, returning the stored
// form. Prefer the convenience emitters on the request path; Record is
// for callers that need the append error (tests, batch imports).
func (s *Service) Record(ctx context.Context, e Entry) (Entry, error) {
	if s.repo == nil {
		return Entry{}, errors.New("audit: repository not configured")
	}
	if e.Action == "" || e.Category == "" || e.Severity == "" || e.Status == "" {
		return Entry{}, ErrInvalidEntry
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.clock().UTC()
	}
	if err := s.repo.Append(ctx, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// emit is the best-effort path: a sink failure is logged, never raised.
func (s *Service) emit(ctx context.Context, e Entry) {
	if _, err := s.Record(ctx, e); err != nil {
		s.log.Warn("audit append failed", "action", e.Action, "category", e.Category, "err", err)
	}
}

// AuthSuccess records a completed authentication.
func (s *Service) AuthSuccess(ctx context.Context, subjectID, role, shopID, ip, path string) {
	s.emit(ctx, Entry{
		SubjectID: subjectID,
		Role:      role,
		ShopID:    shopID,
		Action:    "authenticate",
		Category:  CategoryAuthentication,
		Severity:  SeverityInfo,
		Status:    StatusSuccess,
		IPAddress: ip,
		Path:      path,
	})
}

// AuthFailure records a rejected authentication with the specific
// error kind for forensics.
func (s *Service) AuthFailure(ctx context.Context, ip, path, errMsg string) {
	s.emit(ctx, Entry{
		Action:       "authenticate",
		Category:     CategoryAuthentication,
		Severity:     SeverityWarning,
		Status:       StatusFailure,
		IPAddress:    ip,
		Path:         path,
		ErrorMessage: errMsg,
	})
}

// AccessDenied records a role or tenant authorization denial.
func (s *Service) AccessDenied(ctx context.Context, subjectID, role, shopID, ip, path, errMsg string) {
	s.emit(ctx, Entry{
		SubjectID:    subjectID,
		Role:         role,
		ShopID:       shopID,
		Action:       path,
		Category:     CategoryAuthorization,
		Severity:     SeverityWarning,
		Status:       StatusFailure,
		IPAddress:    ip,
		Path:         path,
		ErrorMessage: errMsg,
	})
}

// RateLimitExceeded records a 429 rejection.
func (s *Service) RateLimitExceeded(ctx context.Context, ip, path string) {
	s.emit(ctx, Entry{
		Action:    "rate_limit",
		Category:  CategoryRateLimit,
		Severity:  SeverityWarning,
		Status:    StatusFailure,
		IPAddress: ip,
		Path:      path,
	})
}

// Fault records an unexpected internal failure on the request path.
func (s *Service) Fault(ctx context.Context, ip, path, errMsg string) {
	s.emit(ctx, Entry{
		Action:       "gateway_fault",
		Category:     CategoryAuthentication,
		Severity:     SeverityCritical,
		Status:       StatusFailure,
		IPAddress:    ip,
		Path:         path,
		ErrorMessage: errMsg,
	})
}

// AdminAction records a sensitive action taken by an admin-bearing
// identity; handlers call this for state-changing admin operations.
func (s *Service) AdminAction(ctx context.Context, subjectID, role, shopID, ip, action, details string) {
	s.emit(ctx, Entry{
		SubjectID: subjectID,
		Role:      role,
		ShopID:    shopID,
		Action:    action,
		Category:  CategoryAdmin,
		Severity:  SeverityInfo,
		Status:    StatusSuccess,
		IPAddress: ip,
		Details:   details,
	})
}
