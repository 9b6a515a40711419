package model

import "time"

// LessonState is the display classification of a lesson.
type LessonState string

const (
	StateNormal             LessonState = "NORMAL"
	StateFree               LessonState = "FREE"
	StateCanceled           LessonState = "CANCELED"
	StateExam               LessonState = "EXAM"
	StateRescheduled        LessonState = "RESCHEDULED"
	StateSubstituted        LessonState = "SUBSTITUTED"
	StateRoomSubstituted    LessonState = "ROOM_SUBSTITUTED"
	StateTeacherSubstituted LessonState = "TEACHER_SUBSTITUTED"
	StateAdditional         LessonState = "ADDITIONAL"
)

// ElementState is the substitution state of a participant.
type ElementState string

const (
	ElementRegular     ElementState = "REGULAR"
	ElementSubstituted ElementState = "SUBSTITUTED"
	ElementAbsent      ElementState = "ABSENT"
)

// Teachers carry no long name.
type Teacher struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Group struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	LongName string `json:"longName,omitempty"`
}

type Subject struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	LongName string `json:"longName,omitempty"`
}

type Room struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	LongName string `json:"longName,omitempty"`
	Capacity int    `json:"capacity,omitempty"`
}

// Entity is one of the resolvable participant types.
type Entity interface {
	Teacher | Group | Subject | Room
}

// Stateful annotates an entity with its substitution state. Original is
// set only when the raw reference named a replaced element that resolved.
type Stateful[T Entity] struct {
	Entity   T            `json:"entity"`
	State    ElementState `json:"state"`
	Original *T           `json:"original,omitempty"`
}

// Changed reports whether the element differs from the planned one.
func (s Stateful[T]) Changed() bool {
	return s.State != ElementRegular && s.State != ""
}

// Placeholder reports whether the element stands for "nobody", e.g. an
// absent teacher without substitute.
func (s Stateful[T]) Placeholder() bool {
	var zero T
	return s.Entity == zero
}

type LessonExam struct {
	Name         string `json:"name"`
	MarkSchemaID int    `json:"markSchemaId"`
}

// RescheduleInfo points at the other slot of a moved lesson. IsSource is
// true for the slot the lesson was moved away from.
type RescheduleInfo struct {
	IsSource  bool      `json:"isSource"`
	OtherFrom time.Time `json:"otherFrom"`
	OtherTo   time.Time `json:"otherTo"`
}

// Lesson is one normalized period or, after combination, a block of
// consecutive periods.
type Lesson struct {
	ID int `json:"id"`

	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	// Duration is the number of raw periods in this block.
	Duration int `json:"duration"`
	// Break is the sum of gaps absorbed while combining; nil until a
	// merge absorbed a non-zero gap.
	Break *time.Duration `json:"break,omitempty"`

	Note             string `json:"note,omitempty"`
	Text             string `json:"text,omitempty"`
	Info             string `json:"info,omitempty"`
	SubstitutionText string `json:"substitutionText,omitempty"`

	Groups   []Stateful[Group]   `json:"groups"`
	Teachers []Stateful[Teacher] `json:"teachers"`
	Rooms    []Stateful[Room]    `json:"rooms"`
	Subject  *Stateful[Subject]  `json:"subject,omitempty"`

	State         LessonState `json:"state"`
	IsEvent       bool        `json:"isEvent,omitempty"`
	IsRescheduled bool        `json:"isRescheduled,omitempty"`

	Exam           *LessonExam     `json:"exam,omitempty"`
	RescheduleInfo *RescheduleInfo `json:"rescheduleInfo,omitempty"`

	BackgroundColor string `json:"backgroundColor,omitempty"`
}

// SubjectName returns the short name of the subject or "" if the lesson
// has none.
func (l Lesson) SubjectName() string {
	if l.Subject == nil {
		return ""
	}
	return l.Subject.Entity.Name
}

// Title is the best human-readable label of the lesson.
func (l Lesson) Title() string {
	if l.Subject == nil {
		if l.Text != "" {
			return l.Text
		}
		return "Lesson"
	}
	if l.Subject.Entity.LongName != "" {
		return l.Subject.Entity.LongName
	}
	return l.Subject.Entity.Name
}

// Week maps ISO dates (YYYY-MM-DD) to the lessons of that day ordered by
// From.
type Week map[string][]Lesson

type Exam struct {
	ID       int       `json:"id"`
	Type     string    `json:"type"`
	Name     string    `json:"name"`
	Subject  string    `json:"subject"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Teachers []string  `json:"teachers,omitempty"`
	Rooms    []string  `json:"rooms,omitempty"`
	Text     string    `json:"text,omitempty"`
}

type Grade struct {
	ID       int       `json:"id"`
	Subject  string    `json:"subject"`
	Mark     string    `json:"mark"`
	Value    float64   `json:"value"`
	Text     string    `json:"text,omitempty"`
	ExamType string    `json:"examType,omitempty"`
	Date     time.Time `json:"date"`
}

type Absence struct {
	ID        int       `json:"id"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Reason    string    `json:"reason,omitempty"`
	Text      string    `json:"text,omitempty"`
	IsExcused bool      `json:"isExcused"`
}

type ClassRole struct {
	ID   int       `json:"id"`
	Name string    `json:"name"`
	Duty string    `json:"duty"`
	Text string    `json:"text,omitempty"`
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type SchoolYear struct {
	ID   int       `json:"id"`
	Name string    `json:"name"`
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}
