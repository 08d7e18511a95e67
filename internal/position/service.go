// Package position manages role postings. A position's state is the partition
// it is stored in, so a state change moves the document between partitions.
package position

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/authz"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
	apierrors "github.com/UofT-ClubHub/Campus-Compass-sub000/internal/errors"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/guard"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/lock"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/metrics"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/model"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service runs the open/closed position lifecycle.
type Service struct {
	store  docstore.Store
	guard  *guard.Guard
	logger *logrus.Logger
	now    func() time.Time
}

// NewService creates a new position Service.
func NewService(store docstore.Store, g *guard.Guard, logger *logrus.Logger) *Service {
	return &Service{store: store, guard: g, logger: logger, now: time.Now}
}

func lockKey(orgID, positionID string) string {
	return lock.Key(model.CollectionOrganizations+"/"+orgID+"/Positions", positionID)
}

// Create adds a new position to the open partition under a generated id.
func (s *Service) Create(ctx context.Context, actor authz.Identity, orgID string, raw map[string]interface{}) (*PositionView, error) {
	return s.Upsert(ctx, actor, orgID, uuid.NewString(), raw, model.PartitionOpen)
}

// Upsert writes the position into target. A position found in neither
// partition is created, which is only allowed in the open partition. A position
// found in the other partition is moved, merged with raw, in one batch. A
// position already in target is merged in place.
func (s *Service) Upsert(ctx context.Context, actor authz.Identity, orgID, positionID string, raw map[string]interface{}, target model.Partition) (*PositionView, error) {
	in, err := model.DecodePositionInput(raw)
	if err != nil {
		return nil, err
	}

	var view *PositionView
	err = s.guard.Run(ctx, opUpsert, []string{lockKey(orgID, positionID)}, func(ctx context.Context) error {
		if err := s.requireManagedOrganization(ctx, actor, orgID); err != nil {
			return err
		}

		inTarget, err := s.find(ctx, orgID, target, positionID)
		if err != nil {
			return err
		}
		inOther, err := s.find(ctx, orgID, target.Other(), positionID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		b := s.store.Batch()
		var p *model.Position
		switch {
		case inTarget != nil:
			p = inTarget
			in.Apply(p)
			p.UpdatedAt = now
			if err := model.Validate(p); err != nil {
				return err
			}
			b.Update(model.PositionsCollection(orgID, target), positionID, p.ToFields(), docstore.IfVersion(inTarget.Version))
			if inOther != nil {
				// a stale copy in the other partition is dropped
				b.Delete(model.PositionsCollection(orgID, target.Other()), positionID, docstore.IfVersion(inOther.Version))
			}
		case inOther != nil:
			p = inOther
			in.Apply(p)
			p.UpdatedAt = now
			if err := model.Validate(p); err != nil {
				return err
			}
			b.Delete(model.PositionsCollection(orgID, target.Other()), positionID, docstore.IfVersion(inOther.Version))
			b.Set(model.PositionsCollection(orgID, target), positionID, p.ToFields())
		default:
			if target == model.PartitionClosed {
				return apierrors.ErrClosedPositionCreate
			}
			p = &model.Position{ID: positionID, OrganizationID: orgID, CreatedAt: now, UpdatedAt: now}
			in.Apply(p)
			if err := model.Validate(p); err != nil {
				return err
			}
			b.Set(model.PositionsCollection(orgID, target), positionID, p.ToFields())
		}

		if err := s.guard.Commit(ctx, opUpsert, b); err != nil {
			return err
		}
		view = newView(p, target, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"orgID":      orgID,
		"positionID": positionID,
		"partition":  target,
	}).Info("Position written")
	return view, nil
}

// Delete removes the position from the hinted partition.
func (s *Service) Delete(ctx context.Context, actor authz.Identity, orgID, positionID string, partition model.Partition) error {
	err := s.guard.Run(ctx, opDelete, []string{lockKey(orgID, positionID)}, func(ctx context.Context) error {
		if err := s.requireManagedOrganization(ctx, actor, orgID); err != nil {
			return err
		}
		p, err := s.find(ctx, orgID, partition, positionID)
		if err != nil {
			return err
		}
		if p == nil {
			return apierrors.ErrPositionNotFound
		}
		b := s.store.Batch()
		b.Delete(model.PositionsCollection(orgID, partition), positionID, docstore.IfVersion(p.Version))
		return s.guard.Commit(ctx, opDelete, b)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"orgID":      orgID,
		"positionID": positionID,
		"partition":  partition,
	}).Info("Position deleted")
	return nil
}

// Get returns one position from partition.
func (s *Service) Get(ctx context.Context, orgID, positionID string, partition model.Partition) (*PositionView, error) {
	p, err := s.find(ctx, orgID, partition, positionID)
	if err != nil {
		return nil, s.guard.Translate(opList, err)
	}
	if p == nil {
		return nil, apierrors.ErrPositionNotFound
	}
	return newView(p, partition, s.now()), nil
}

// List returns every position of the organization in partition, oldest first.
// Documents that cannot be decoded are skipped.
func (s *Service) List(ctx context.Context, orgID string, partition model.Partition) ([]*PositionView, error) {
	docs, err := s.store.Query(ctx, model.PositionsCollection(orgID, partition), model.FieldOrganizationID, docstore.OpEqual, orgID)
	if err != nil {
		return nil, s.guard.Translate(opList, err)
	}
	now := s.now()
	views := make([]*PositionView, 0, len(docs))
	for _, doc := range docs {
		p, err := model.DecodePosition(doc)
		if err != nil {
			s.guard.Skipped(opList, metrics.ReasonUndecodable, logrus.Fields{"orgID": orgID, "positionID": doc.ID, "error": err.Error()})
			continue
		}
		views = append(views, newView(p, partition, now))
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].CreatedAt.Before(views[j].CreatedAt)
	})
	return views, nil
}

// find returns the position stored in partition, or nil if there is none.
// requireManagedOrganization reports a missing organization before checking
// that actor manages it.
func (s *Service) requireManagedOrganization(ctx context.Context, actor authz.Identity, orgID string) error {
	if _, err := model.LoadOrganization(ctx, s.store, orgID); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return apierrors.ErrOrganizationNotFound
		}
		return err
	}
	return authz.RequireManager(ctx, s.store, actor, orgID)
}

func (s *Service) find(ctx context.Context, orgID string, partition model.Partition, positionID string) (*model.Position, error) {
	p, err := model.LoadPosition(ctx, s.store, orgID, partition, positionID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	return p, err
}
