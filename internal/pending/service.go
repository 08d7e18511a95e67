// Package pending runs the pending organization workflow: members propose
// organizations, admins approve or reject them.
package pending

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
	apierrors "github.com/UofT-ClubHub/Campus-Compass-sub000/internal/errors"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/guard"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/lock"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/metrics"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/model"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/relationship"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service manages pending organization requests.
type Service struct {
	store         docstore.Store
	guard         *guard.Guard
	relationships *relationship.Service
	limit         int
	logger        *logrus.Logger
	now           func() time.Time
}

// NewService creates a new pending Service. limit is the number of pending
// requests a member may hold right after a submission; values below one use
// DefaultRequestLimit.
func NewService(store docstore.Store, g *guard.Guard, relationships *relationship.Service, limit int, logger *logrus.Logger) *Service {
	if limit < 1 {
		limit = DefaultRequestLimit
	}
	return &Service{
		store:         store,
		guard:         g,
		relationships: relationships,
		limit:         limit,
		logger:        logger,
		now:           time.Now,
	}
}

// Submit stores a new pending request. When the requester already holds limit
// or more pending requests, the oldest are deleted in the same batch so that
// exactly limit remain including the new one.
func (s *Service) Submit(ctx context.Context, requesterID string, req SubmitRequest) (*SubmitResult, error) {
	r := &model.PendingOrganizationRequest{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		Name:        strings.TrimSpace(req.Name),
		Campus:      strings.TrimSpace(req.Campus),
		Description: strings.TrimSpace(req.Description),
		Department:  strings.TrimSpace(req.Department),
		Image:       strings.TrimSpace(req.Image),
		Instagram:   strings.TrimSpace(req.Instagram),
		Status:      model.StatusPending,
	}
	if err := model.Validate(r); err != nil {
		return nil, err
	}

	var result *SubmitResult
	key := lock.Key(model.CollectionPendingOrganizations, "requester:"+requesterID)
	err := s.guard.Run(ctx, opSubmit, []string{key}, func(ctx context.Context) error {
		existing, err := s.pendingOf(ctx, requesterID)
		if err != nil {
			return err
		}

		b := s.store.Batch()
		pruned := []string{}
		if excess := len(existing) - (s.limit - 1); excess > 0 {
			for _, old := range existing[:excess] {
				b.Delete(model.CollectionPendingOrganizations, old.ID, docstore.IfVersion(old.Version))
				pruned = append(pruned, old.ID)
			}
		}
		r.CreatedAt = s.now().UTC()
		b.Set(model.CollectionPendingOrganizations, r.ID, r.ToFields())
		if err := s.guard.Commit(ctx, opSubmit, b); err != nil {
			return err
		}
		result = &SubmitResult{Request: newRequestView(r), Pruned: pruned}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"requestID":   r.ID,
		"requesterID": requesterID,
		"pruned":      len(result.Pruned),
	}).Info("Pending organization request submitted")
	return result, nil
}

// pendingOf returns the requester's pending requests, oldest first.
func (s *Service) pendingOf(ctx context.Context, requesterID string) ([]*model.PendingOrganizationRequest, error) {
	docs, err := s.store.Query(ctx, model.CollectionPendingOrganizations, model.FieldRequesterID, docstore.OpEqual, requesterID)
	if err != nil {
		return nil, err
	}
	out := make([]*model.PendingOrganizationRequest, 0, len(docs))
	for _, r := range s.decodeAll(opSubmit, docs) {
		if r.Status == model.StatusPending {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Decide approves or rejects a pending request. Approval creates the
// organization, makes the requester its executive and marks the request
// approved, all in one batch. A decided request cannot be decided again.
func (s *Service) Decide(ctx context.Context, requestID, action, message string) (*DecisionResult, error) {
	keys := []string{lock.Key(model.CollectionPendingOrganizations, requestID)}

	var result *DecisionResult
	err := s.guard.Run(ctx, opDecide, keys, func(ctx context.Context) error {
		r, err := model.LoadPendingRequest(ctx, s.store, requestID)
		if errors.Is(err, docstore.ErrNotFound) {
			return apierrors.ErrPendingRequestNotFound
		}
		if err != nil {
			return err
		}
		if action != ActionApprove && action != ActionReject {
			return apierrors.ErrInvalidDecision
		}
		if r.Status.Terminal() {
			return apierrors.ErrTerminalRequest
		}

		now := s.now().UTC()
		res := &DecisionResult{}
		b := s.store.Batch()
		status := model.StatusRejected
		if action == ActionApprove {
			status = model.StatusApproved
			orgID := uuid.NewString()
			org := &model.Organization{
				ID:          orgID,
				Name:        r.Name,
				Description: r.Description,
				Campus:      r.Campus,
				Department:  r.Department,
				Image:       r.Image,
				Instagram:   r.Instagram,
				Executives:  []string{},
			}
			if err := model.Validate(org); err != nil {
				return err
			}
			b.Set(model.CollectionOrganizations, orgID, org.ToFields())
			execs, err := s.relationships.QueueNewOrganizationExecutives(ctx, b, orgID, []string{r.RequesterID})
			if err != nil {
				return err
			}
			res.OrganizationID = orgID
			res.Executives = execs
		}

		b.Update(model.CollectionPendingOrganizations, requestID, docstore.Fields{
			model.FieldStatus:          string(status),
			model.FieldDecisionMessage: message,
			model.FieldDecidedAt:       now,
		}, docstore.IfVersion(r.Version))
		if err := s.guard.Commit(ctx, opDecide, b); err != nil {
			return err
		}

		r.Status = status
		r.DecisionMessage = message
		r.DecidedAt = &now
		res.Request = newRequestView(r)
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"requestID":   requestID,
		"requesterID": result.Request.RequesterID,
		"status":      result.Request.Status,
		"orgID":       result.OrganizationID,
	}).Info("Pending organization request decided")
	return result, nil
}

// ListPending returns every pending request, newest first. A non-empty campus
// keeps only requests for that campus, compared case-insensitively.
func (s *Service) ListPending(ctx context.Context, campus string) ([]*RequestView, error) {
	docs, err := s.store.Query(ctx, model.CollectionPendingOrganizations, model.FieldStatus, docstore.OpEqual, string(model.StatusPending))
	if err != nil {
		return nil, s.guard.Translate(opList, err)
	}
	campus = strings.TrimSpace(campus)
	var out []*model.PendingOrganizationRequest
	for _, r := range s.decodeAll(opList, docs) {
		if campus == "" || strings.EqualFold(strings.TrimSpace(r.Campus), campus) {
			out = append(out, r)
		}
	}
	return newestFirst(out), nil
}

// ListMine returns every request of the requester in any state, newest first.
func (s *Service) ListMine(ctx context.Context, requesterID string) ([]*RequestView, error) {
	docs, err := s.store.Query(ctx, model.CollectionPendingOrganizations, model.FieldRequesterID, docstore.OpEqual, requesterID)
	if err != nil {
		return nil, s.guard.Translate(opList, err)
	}
	return newestFirst(s.decodeAll(opList, docs)), nil
}

func (s *Service) decodeAll(operation string, docs []*docstore.Document) []*model.PendingOrganizationRequest {
	out := make([]*model.PendingOrganizationRequest, 0, len(docs))
	for _, doc := range docs {
		r, err := model.DecodePendingRequest(doc)
		if err != nil {
			s.guard.Skipped(operation, metrics.ReasonUndecodable, logrus.Fields{"requestID": doc.ID, "error": err.Error()})
			continue
		}
		out = append(out, r)
	}
	return out
}

func newestFirst(requests []*model.PendingOrganizationRequest) []*RequestView {
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	views := make([]*RequestView, 0, len(requests))
	for _, r := range requests {
		views = append(views, newRequestView(r))
	}
	return views
}
