package model

import (
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
	apierrors "github.com/UofT-ClubHub/Campus-Compass-sub000/internal/errors"
)

// Position is a role posting. Its state is the partition it is stored in, not
// a field of the document.
type Position struct {
	ID      string `mapstructure:"-"`
	Version int64  `mapstructure:"-"`

	OrganizationID string            `mapstructure:"organization_id" validate:"required"`
	Title          string            `mapstructure:"title" validate:"notblank"`
	Description    string            `mapstructure:"description"`
	Requirements   []string          `mapstructure:"requirements"`
	Deadline       *time.Time        `mapstructure:"deadline"`
	Questions      map[string]string `mapstructure:"questions"`
	CreatedAt      time.Time         `mapstructure:"created_at"`
	UpdatedAt      time.Time         `mapstructure:"updated_at"`
}

// DecodePosition converts a stored document into a Position.
func DecodePosition(doc *docstore.Document) (*Position, error) {
	var p Position
	if err := decodeFields(doc.Fields, &p); err != nil {
		return nil, err
	}
	p.ID = doc.ID
	p.Version = doc.Version
	return &p, nil
}

// ToFields encodes the position for a full write.
func (p *Position) ToFields() docstore.Fields {
	questions := make(map[string]interface{}, len(p.Questions))
	for k, v := range p.Questions {
		questions[k] = v
	}
	return docstore.Fields{
		FieldOrganizationID: p.OrganizationID,
		"title":             p.Title,
		"description":       p.Description,
		"requirements":      stringSlice(p.Requirements),
		"deadline":          optionalTime(p.Deadline),
		"questions":         questions,
		"created_at":        p.CreatedAt.UTC(),
		FieldUpdatedAt:      p.UpdatedAt.UTC(),
	}
}

// EffectiveStatus is the state reported to callers: closed when stored in the
// closed partition or when the deadline has passed.
func (p *Position) EffectiveStatus(stored Partition, now time.Time) Partition {
	if stored == PartitionClosed {
		return PartitionClosed
	}
	if p.Deadline != nil && !p.Deadline.IsZero() && p.Deadline.Before(now) {
		return PartitionClosed
	}
	return PartitionOpen
}

// PositionInput is the set of client-supplied position fields. Only keys that
// were present in the request are applied.
type PositionInput struct {
	Title        string            `mapstructure:"title"`
	Description  string            `mapstructure:"description"`
	Requirements []string          `mapstructure:"requirements"`
	Deadline     *time.Time        `mapstructure:"deadline"`
	Questions    map[string]string `mapstructure:"questions"`

	present map[string]bool
}

// DecodePositionInput decodes raw client fields strictly. Unknown keys and
// mistyped values are validation errors.
func DecodePositionInput(raw map[string]interface{}) (*PositionInput, error) {
	var in PositionInput
	if err := decodeStrict(raw, &in); err != nil {
		return nil, apierrors.NewValidationError(err.Error())
	}
	in.present = make(map[string]bool, len(raw))
	for k := range raw {
		in.present[k] = true
	}
	return &in, nil
}

// Apply merges the supplied fields into p.
func (in *PositionInput) Apply(p *Position) {
	if in.present["title"] {
		p.Title = in.Title
	}
	if in.present["description"] {
		p.Description = in.Description
	}
	if in.present["requirements"] {
		p.Requirements = append([]string(nil), in.Requirements...)
	}
	if in.present["deadline"] {
		p.Deadline = in.Deadline
	}
	if in.present["questions"] {
		p.Questions = make(map[string]string, len(in.Questions))
		for k, v := range in.Questions {
			p.Questions[k] = v
		}
	}
}

// Question is one entry of a position's application form.
type Question struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

var numericPart = regexp.MustCompile(`\d+`)

// SortedQuestions orders questions by the number their key contains, so Q2
// comes before Q10. Keys without a number sort last, alphabetically.
func SortedQuestions(questions map[string]string) []Question {
	out := make([]Question, 0, len(questions))
	for k, v := range questions {
		out = append(out, Question{Key: k, Text: v})
	}
	sort.Slice(out, func(i, j int) bool {
		ni, oki := questionNumber(out[i].Key)
		nj, okj := questionNumber(out[j].Key)
		switch {
		case oki && okj && ni != nj:
			return ni < nj
		case oki != okj:
			return oki
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func questionNumber(key string) (int, bool) {
	matches := numericPart.FindAllString(key, -1)
	if len(matches) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(matches[len(matches)-1])
	if err != nil {
		return 0, false
	}
	return n, true
}
