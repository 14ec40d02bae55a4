package tasks

import (
	"encoding/json"
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const DefaultCategory = "Personal"

// ParsePriority maps any external value onto the enum. Anything that is not
// exactly low, medium or high becomes medium.
func ParsePriority(s string) Priority {
	switch p := Priority(s); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p
	default:
		return PriorityMedium
	}
}

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

const dateLayout = "2006-01-02"

// Date is a calendar date without time of day, encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string { return d.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Task is a canonical record: ID and CreatedAt are assigned by the store.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	IsCompleted bool      `json:"is_completed"`
	Priority    Priority  `json:"priority"`
	Category    string    `json:"category"`
	DueDate     *Date     `json:"due_date"`
	CreatedAt   time.Time `json:"created_at"`
}

// Draft is a task payload that has not been persisted yet.
type Draft struct {
	Title       string
	Description *string
	Priority    string
	Category    string
	DueDate     *Date
}

// Normalize returns the draft in the shape the store accepts: trimmed title,
// priority coerced into the enum, category defaulted. It is the only place
// external priority values are coerced.
func (d Draft) Normalize() (Draft, error) {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return Draft{}, ErrTitleRequired
	}
	d.Priority = string(ParsePriority(d.Priority))
	d.Category = strings.TrimSpace(d.Category)
	if d.Category == "" {
		d.Category = DefaultCategory
	}
	if d.Description != nil && *d.Description == "" {
		d.Description = nil
	}
	return d, nil
}
