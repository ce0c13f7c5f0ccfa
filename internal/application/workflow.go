package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"launch-workflow/internal/domain"
	"launch-workflow/internal/ports"
)

// WorkflowService orchestrates user-initiated approval-workflow actions.
// Every action follows the same protocol: authorize, compute the candidate
// state in memory, persist it, and only then commit the candidate to the
// session. A failed save leaves the session exactly where it was; the caller
// sees the error and may retry the action.
type WorkflowService struct {
	authorizer *RoleAuthorizer
	gate       *LaunchGate
	repo       ports.ApprovalRepository
	audit      ports.AuditRepository
	logger     ports.Logger
	now        func() time.Time
}

func NewWorkflowService(authorizer *RoleAuthorizer, gate *LaunchGate, repo ports.ApprovalRepository, audit ports.AuditRepository, logger ports.Logger) *WorkflowService {
	return &WorkflowService{
		authorizer: authorizer,
		gate:       gate,
		repo:       repo,
		audit:      audit,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Session owns the in-memory approval state of one product for one editing
// session. Operations are sequential: each awaits its persistence call before
// the next is accepted.
type Session struct {
	service *WorkflowService
	state   domain.ProductApprovalState
}

// Create initializes the approval state for a product entering draft and
// opens a session over it. Fails with ErrConflict if the product already has
// approval state.
func (s *WorkflowService) Create(ctx context.Context, productID string) (*Session, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	state := domain.NewProductApprovalState(productID)
	if err := s.repo.Create(ctx, state); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "approval state created", "product_id", productID)
	return &Session{service: s, state: state}, nil
}

// Open loads the current approval state for an existing product.
func (s *WorkflowService) Open(ctx context.Context, productID string) (*Session, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	state, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &Session{service: s, state: state}, nil
}

// Audit returns the committed-action trail for a product.
func (s *WorkflowService) Audit(ctx context.Context, productID string) ([]domain.AuditEntry, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.audit.ListByProduct(ctx, productID)
}

// State returns a copy of the session's current state.
func (sess *Session) State() domain.ProductApprovalState {
	return sess.state.Clone()
}

// CanLaunch reports whether the launch control should be offered to this
// identity right now. The same check runs again inside Launch.
func (sess *Session) CanLaunch(identity domain.Identity) bool {
	return sess.service.gate.CanLaunch(sess.state, identity)
}

// Approve signs off the given section as identity. Approving an
// already-approved section is a no-op. On a version conflict the session
// refetches the stored state and retries once before surfacing the conflict.
func (sess *Session) Approve(ctx context.Context, identity domain.Identity, section domain.Section) error {
	svc := sess.service
	if identity.ID == "" {
		return domain.ErrInvalidInput
	}
	if !svc.authorizer.CanApprove(identity, section) {
		return domain.ErrUnauthorized
	}
	for attempt := 0; ; attempt++ {
		if sess.state.Record(section).Approved {
			return nil
		}
		candidate := sess.state.Approve(section, identity.ID, svc.now())
		record := candidate.Record(section)
		err := svc.repo.SaveApprovalField(ctx, sess.state.ProductID, section, record, sess.state.Version)
		if err != nil {
			if errors.Is(err, domain.ErrConflict) && attempt == 0 {
				if err := sess.refetch(ctx); err != nil {
					return err
				}
				continue
			}
			svc.logger.Error(ctx, "approve save failed",
				"product_id", sess.state.ProductID, "section", section, "error", err)
			return err
		}
		candidate.Version = sess.state.Version + 1
		sess.state = candidate
		svc.appendAudit(ctx, domain.AuditEntry{
			ID:        uuid.NewString(),
			ProductID: candidate.ProductID,
			Actor:     identity.ID,
			Action:    domain.AuditActionApprove,
			Section:   section,
			At:        record.ApprovedAt,
		})
		svc.logger.Info(ctx, "section approved",
			"product_id", candidate.ProductID, "section", section, "approved_by", identity.ID)
		return nil
	}
}

// Revoke clears the given section's approval. Any identity authorized to
// approve the section may revoke, including another approver's sign-off; the
// audit trail records who did it. Revoking an unapproved section is a no-op.
func (sess *Session) Revoke(ctx context.Context, identity domain.Identity, section domain.Section) error {
	svc := sess.service
	if identity.ID == "" {
		return domain.ErrInvalidInput
	}
	if !svc.authorizer.CanApprove(identity, section) {
		return domain.ErrUnauthorized
	}
	for attempt := 0; ; attempt++ {
		if !sess.state.Record(section).Approved {
			return nil
		}
		candidate := sess.state.Revoke(section)
		err := svc.repo.SaveApprovalField(ctx, sess.state.ProductID, section, candidate.Record(section), sess.state.Version)
		if err != nil {
			if errors.Is(err, domain.ErrConflict) && attempt == 0 {
				if err := sess.refetch(ctx); err != nil {
					return err
				}
				continue
			}
			svc.logger.Error(ctx, "revoke save failed",
				"product_id", sess.state.ProductID, "section", section, "error", err)
			return err
		}
		candidate.Version = sess.state.Version + 1
		sess.state = candidate
		svc.appendAudit(ctx, domain.AuditEntry{
			ID:        uuid.NewString(),
			ProductID: candidate.ProductID,
			Actor:     identity.ID,
			Action:    domain.AuditActionRevoke,
			Section:   section,
			At:        svc.now(),
		})
		svc.logger.Info(ctx, "section approval revoked",
			"product_id", candidate.ProductID, "section", section, "revoked_by", identity.ID)
		return nil
	}
}

// Launch executes the draft -> active transition. Unlike approve and revoke,
// a launch whose preconditions do not hold is a hard ErrInvalidTransition
// failure, never a no-op.
func (sess *Session) Launch(ctx context.Context, identity domain.Identity) error {
	svc := sess.service
	if identity.ID == "" {
		return domain.ErrInvalidInput
	}
	for attempt := 0; ; attempt++ {
		candidate, err := svc.gate.Launch(sess.state, identity, svc.now())
		if err != nil {
			return err
		}
		err = svc.repo.SaveLaunch(ctx, sess.state.ProductID, candidate.LaunchedBy, candidate.LaunchedAt, sess.state.Version)
		if err != nil {
			if errors.Is(err, domain.ErrConflict) && attempt == 0 {
				if err := sess.refetch(ctx); err != nil {
					return err
				}
				continue
			}
			svc.logger.Error(ctx, "launch save failed",
				"product_id", sess.state.ProductID, "error", err)
			return err
		}
		candidate.Version = sess.state.Version + 1
		sess.state = candidate
		svc.appendAudit(ctx, domain.AuditEntry{
			ID:        uuid.NewString(),
			ProductID: candidate.ProductID,
			Actor:     identity.ID,
			Action:    domain.AuditActionLaunch,
			At:        candidate.LaunchedAt,
		})
		svc.logger.Info(ctx, "product launched",
			"product_id", candidate.ProductID, "launched_by", identity.ID)
		return nil
	}
}

func (sess *Session) refetch(ctx context.Context) error {
	fresh, err := sess.service.repo.Get(ctx, sess.state.ProductID)
	if err != nil {
		return err
	}
	sess.state = fresh
	return nil
}

// The business save has already committed when the audit entry is written, so
// an append failure is logged rather than rolled back.
func (s *WorkflowService) appendAudit(ctx context.Context, entry domain.AuditEntry) {
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error(ctx, "audit append failed",
			"product_id", entry.ProductID, "action", entry.Action, "error", err)
	}
}
