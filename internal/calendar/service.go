// Package calendar keeps members' personal calendar events. Events are added
// by hand or derived from posts; derived events are snapshots of the post and
// deleting the post only flags them.
package calendar

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
	apierrors "github.com/UofT-ClubHub/Campus-Compass-sub000/internal/errors"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/guard"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/lock"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/metrics"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/model"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service links posts to members' calendars.
type Service struct {
	store  docstore.Store
	guard  *guard.Guard
	logger *logrus.Logger
	now    func() time.Time
}

// NewService creates a new calendar Service.
func NewService(store docstore.Store, g *guard.Guard, logger *logrus.Logger) *Service {
	return &Service{store: store, guard: g, logger: logger, now: time.Now}
}

// CreateFromPost copies the post's event details into a new calendar event
// owned by the member. A member holds at most one event per post; a second
// call fails with a *DuplicateEventError naming the existing event.
func (s *Service) CreateFromPost(ctx context.Context, memberID, postID string) (*EventView, error) {
	key := lock.Key(model.CollectionCalendarEvents, memberID+":"+postID)

	var view *EventView
	err := s.guard.Run(ctx, opCreateFromPost, []string{key}, func(ctx context.Context) error {
		post, err := model.LoadPost(ctx, s.store, postID)
		if errors.Is(err, docstore.ErrNotFound) {
			return apierrors.ErrPostNotFound
		}
		if err != nil {
			return err
		}
		if post.OccursAt == nil || post.OccursAt.IsZero() {
			return apierrors.ErrPostHasNoEventDate
		}

		existing, err := s.store.Query(ctx, model.CollectionCalendarEvents, model.FieldOwnerMemberID, docstore.OpEqual, memberID)
		if err != nil {
			return err
		}
		for _, doc := range existing {
			if src, _ := doc.Fields[model.FieldSourcePostID].(string); src == postID {
				return &DuplicateEventError{EventID: doc.ID}
			}
		}

		now := s.now().UTC()
		event := eventFromPost(post, memberID, now)
		event.ID = uuid.NewString()
		if err := model.Validate(event); err != nil {
			return err
		}
		b := s.store.Batch()
		b.Set(model.CollectionCalendarEvents, event.ID, event.ToFields())
		if err := s.guard.Commit(ctx, opCreateFromPost, b); err != nil {
			return err
		}
		view = newEventView(event)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"memberID": memberID,
		"postID":   postID,
		"eventID":  view.ID,
	}).Info("Calendar event created from post")
	return view, nil
}

// eventFromPost snapshots the post. The start time is kept only when the
// event is not at midnight.
func eventFromPost(post *model.Post, memberID string, now time.Time) *model.CalendarEvent {
	at := *post.OccursAt
	title := post.Title
	if title == "" {
		title = DefaultTitle
	}
	event := &model.CalendarEvent{
		OwnerMemberID:  memberID,
		SourcePostID:   post.ID,
		Title:          title,
		Description:    post.Details,
		Date:           at.Format("2006-01-02"),
		Location:       post.Campus,
		OrganizationID: post.OrganizationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if at.Hour() != 0 || at.Minute() != 0 {
		event.StartTime = at.Format("15:04")
	}
	return event
}

// OnPostDeleted flags every event derived from the post. It returns the number
// of events flagged.
func (s *Service) OnPostDeleted(ctx context.Context, postID string) (int, error) {
	var flagged int
	err := s.guard.Run(ctx, opPostDeleted, []string{lock.Key(model.CollectionPosts, postID)}, func(ctx context.Context) error {
		b := s.store.Batch()
		n, err := s.QueueMarkPostDeleted(ctx, b, []string{postID})
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if err := s.guard.Commit(ctx, opPostDeleted, b); err != nil {
			return err
		}
		flagged = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"postID":  postID,
		"flagged": flagged,
	}).Info("Calendar events flagged for deleted post")
	return flagged, nil
}

// QueueMarkPostDeleted queues post_deleted=true on every event derived from
// postIDs that is not flagged yet, and returns how many were queued. Nothing is
// committed.
func (s *Service) QueueMarkPostDeleted(ctx context.Context, b docstore.Batch, postIDs []string) (int, error) {
	queued := 0
	for _, postID := range postIDs {
		docs, err := s.store.Query(ctx, model.CollectionCalendarEvents, model.FieldSourcePostID, docstore.OpEqual, postID)
		if err != nil {
			return queued, err
		}
		for _, doc := range docs {
			if flagged, _ := doc.Fields[model.FieldPostDeleted].(bool); flagged {
				continue
			}
			b.Update(model.CollectionCalendarEvents, doc.ID, docstore.Fields{
				model.FieldPostDeleted: true,
				model.FieldUpdatedAt:   s.now().UTC(),
			}, docstore.IfVersion(doc.Version))
			queued++
		}
	}
	return queued, nil
}

// Create adds an event the member entered by hand.
func (s *Service) Create(ctx context.Context, memberID string, req EventRequest) (*EventView, error) {
	now := s.now().UTC()
	event := &model.CalendarEvent{
		ID:            uuid.NewString(),
		OwnerMemberID: memberID,
		Title:         req.Title,
		Description:   req.Description,
		Date:          req.Date,
		StartTime:     req.StartTime,
		Location:      req.Location,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := model.Validate(event); err != nil {
		return nil, err
	}

	err := s.guard.Run(ctx, opCreate, []string{lock.Key(model.CollectionCalendarEvents, event.ID)}, func(ctx context.Context) error {
		b := s.store.Batch()
		b.Set(model.CollectionCalendarEvents, event.ID, event.ToFields())
		return s.guard.Commit(ctx, opCreate, b)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"memberID": memberID,
		"eventID":  event.ID,
	}).Info("Calendar event created")
	return newEventView(event), nil
}

// Get returns one of the member's events. Events owned by someone else are
// reported as missing.
func (s *Service) Get(ctx context.Context, memberID, eventID string) (*EventView, error) {
	doc, err := s.store.Get(ctx, model.CollectionCalendarEvents, eventID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apierrors.ErrCalendarEventNotFound
	}
	if err != nil {
		return nil, s.guard.Translate(opUpdate, err)
	}
	event, err := ownedEvent(doc, memberID)
	if err != nil {
		return nil, s.guard.Translate(opUpdate, err)
	}
	return newEventView(event), nil
}

// Update changes the editable details of one of the member's events. The
// source post link and the post_deleted flag are never written here.
func (s *Service) Update(ctx context.Context, memberID, eventID string, req EventUpdateRequest) (*EventView, error) {
	doc, err := s.guard.Update(ctx, opUpdate, s.store, model.CollectionCalendarEvents, eventID, apierrors.ErrCalendarEventNotFound,
		func(doc *docstore.Document) (docstore.Fields, error) {
			event, err := ownedEvent(doc, memberID)
			if err != nil {
				return nil, err
			}
			req.apply(event)
			event.UpdatedAt = s.now().UTC()
			if err := model.Validate(event); err != nil {
				return nil, err
			}
			return editableFields(event), nil
		})
	if err != nil {
		return nil, err
	}

	event, err := model.DecodeCalendarEvent(doc)
	if err != nil {
		return nil, s.guard.Translate(opUpdate, err)
	}
	s.logger.WithFields(logrus.Fields{
		"memberID": memberID,
		"eventID":  eventID,
	}).Info("Calendar event updated")
	return newEventView(event), nil
}

// Delete removes one of the member's events.
func (s *Service) Delete(ctx context.Context, memberID, eventID string) error {
	err := s.guard.Run(ctx, opDelete, []string{lock.Key(model.CollectionCalendarEvents, eventID)}, func(ctx context.Context) error {
		doc, err := s.store.Get(ctx, model.CollectionCalendarEvents, eventID)
		if errors.Is(err, docstore.ErrNotFound) {
			return apierrors.ErrCalendarEventNotFound
		}
		if err != nil {
			return err
		}
		if owner, _ := doc.Fields[model.FieldOwnerMemberID].(string); owner != memberID {
			return apierrors.ErrCalendarEventNotFound
		}
		b := s.store.Batch()
		b.Delete(model.CollectionCalendarEvents, eventID, docstore.IfVersion(doc.Version))
		return s.guard.Commit(ctx, opDelete, b)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"memberID": memberID,
		"eventID":  eventID,
	}).Info("Calendar event deleted")
	return nil
}

func ownedEvent(doc *docstore.Document, memberID string) (*model.CalendarEvent, error) {
	event, err := model.DecodeCalendarEvent(doc)
	if err != nil {
		return nil, err
	}
	if event.OwnerMemberID != memberID {
		return nil, apierrors.ErrCalendarEventNotFound
	}
	return event, nil
}

// editableFields are the fields a member may change on an event.
func editableFields(e *model.CalendarEvent) docstore.Fields {
	return docstore.Fields{
		"title":              e.Title,
		"description":        e.Description,
		"date":               e.Date,
		"start_time":         e.StartTime,
		"location":           e.Location,
		model.FieldUpdatedAt: e.UpdatedAt,
	}
}

// ListMine returns the member's events ordered by date and start time.
func (s *Service) ListMine(ctx context.Context, memberID string) ([]*EventView, error) {
	docs, err := s.store.Query(ctx, model.CollectionCalendarEvents, model.FieldOwnerMemberID, docstore.OpEqual, memberID)
	if err != nil {
		return nil, s.guard.Translate(opCreateFromPost, err)
	}
	views := make([]*EventView, 0, len(docs))
	for _, doc := range docs {
		e, err := model.DecodeCalendarEvent(doc)
		if err != nil {
			s.guard.Skipped(opCreateFromPost, metrics.ReasonUndecodable, logrus.Fields{"eventID": doc.ID, "error": err.Error()})
			continue
		}
		views = append(views, newEventView(e))
	}
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Date != views[j].Date {
			return views[i].Date < views[j].Date
		}
		return views[i].StartTime < views[j].StartTime
	})
	return views, nil
}
