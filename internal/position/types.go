package position

import (
	"time"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/model"
)

const (
	opUpsert = "position_upsert"
	opDelete = "position_delete"
	opList   = "position_list"
)

// PositionView is a position as reported to callers.
type PositionView struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organizationId"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Requirements   []string         `json:"requirements"`
	Deadline       *time.Time       `json:"deadline,omitempty"`
	Questions      []model.Question `json:"questions"`
	// Partition is where the position is stored.
	Partition model.Partition `json:"partition"`
	// Status is closed when stored closed or once the deadline has passed.
	Status    model.Partition `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func newView(p *model.Position, stored model.Partition, now time.Time) *PositionView {
	requirements := p.Requirements
	if requirements == nil {
		requirements = []string{}
	}
	return &PositionView{
		ID:             p.ID,
		OrganizationID: p.OrganizationID,
		Title:          p.Title,
		Description:    p.Description,
		Requirements:   requirements,
		Deadline:       p.Deadline,
		Questions:      model.SortedQuestions(p.Questions),
		Partition:      stored,
		Status:         p.EffectiveStatus(stored, now),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
