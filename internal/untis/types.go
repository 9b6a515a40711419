package untis

// ElementType is the Untis numeric type of a timetable participant.
type ElementType int

const (
	ElementGroup   ElementType = 1
	ElementTeacher ElementType = 2
	ElementSubject ElementType = 3
	ElementRoom    ElementType = 4
	ElementStudent ElementType = 5
)

func (t ElementType) String() string {
	switch t {
	case ElementGroup:
		return "group"
	case ElementTeacher:
		return "teacher"
	case ElementSubject:
		return "subject"
	case ElementRoom:
		return "room"
	case ElementStudent:
		return "student"
	default:
		return "unknown"
	}
}

// RawElementRef is a participant reference inside a lesson. OrgID is the
// id of the replaced element; zero means "no substitution".
type RawElementRef struct {
	Type    ElementType `json:"type"`
	ID      int         `json:"id"`
	OrgID   int         `json:"orgId,omitempty"`
	Missing bool        `json:"missing,omitempty"`
	State   string      `json:"state"`
}

// RawElement is one entry of the element roster delivered with a week.
type RawElement struct {
	Type          ElementType `json:"type"`
	ID            int         `json:"id"`
	Name          string      `json:"name"`
	LongName      string      `json:"longName,omitempty"`
	DisplayName   string      `json:"displayname,omitempty"`
	AlternateName string      `json:"alternatename,omitempty"`
	Capacity      int         `json:"roomCapacity,omitempty"`
}

// RawRescheduleInfo points at the other slot of a moved lesson.
type RawRescheduleInfo struct {
	Date      int  `json:"date"`
	StartTime int  `json:"startTime"`
	EndTime   int  `json:"endTime"`
	IsSource  bool `json:"isSource"`
}

// RawExamInfo is attached to lessons during which an exam is written.
type RawExamInfo struct {
	ID           int    `json:"id,omitempty"`
	Name         string `json:"name"`
	MarkSchemaID int    `json:"markSchemaId"`
}

// RawLessonFlags carries the "is" object of a period.
type RawLessonFlags struct {
	Standard     bool `json:"standard,omitempty"`
	Event        bool `json:"event,omitempty"`
	Cancelled    bool `json:"cancelled,omitempty"`
	Substitution bool `json:"substitution,omitempty"`
	Additional   bool `json:"additional,omitempty"`
	Free         bool `json:"free,omitempty"`
	Exam         bool `json:"exam,omitempty"`
	Shift        bool `json:"shift,omitempty"`
}

// RawLesson is one period record. Date is YYYYMMDD; StartTime and
// EndTime are HMM/HHMM without separator.
type RawLesson struct {
	ID             int                `json:"id"`
	LessonID       int                `json:"lessonId,omitempty"`
	Date           int                `json:"date"`
	StartTime      int                `json:"startTime"`
	EndTime        int                `json:"endTime"`
	Elements       []RawElementRef    `json:"elements"`
	CellState      string             `json:"cellState"`
	LessonText     string             `json:"lessonText,omitempty"`
	PeriodText     string             `json:"periodText,omitempty"`
	PeriodInfo     string             `json:"periodInfo,omitempty"`
	SubstText      string             `json:"substText,omitempty"`
	RescheduleInfo *RawRescheduleInfo `json:"rescheduleInfo,omitempty"`
	Exam           *RawExamInfo       `json:"exam,omitempty"`
	Is             RawLessonFlags     `json:"is"`
}

// Cell states as delivered by the weekly timetable endpoint.
const (
	CellStandard         = "STANDARD"
	CellSubstitution     = "SUBSTITUTION"
	CellRoomSubstitution = "ROOMSUBSTITUTION"
	CellCancel           = "CANCEL"
	CellFree             = "FREE"
	CellExam             = "EXAM"
	CellShift            = "SHIFT"
	CellAdditional       = "ADDITIONAL"
)

// Element states of a RawElementRef.
const (
	StateRegular     = "REGULAR"
	StateSubstituted = "SUBSTITUTED"
	StateAbsent      = "ABSENT"
)

// RawWeek is the decoded weekly timetable: the periods of the selected
// element plus the roster needed to resolve their references.
type RawWeek struct {
	Lessons  []RawLesson  `json:"lessons"`
	Elements []RawElement `json:"elements"`
}

type RawExam struct {
	ID        int      `json:"id"`
	ExamType  string   `json:"examType"`
	Name      string   `json:"name"`
	ExamDate  int      `json:"examDate"`
	StartTime int      `json:"startTime"`
	EndTime   int      `json:"endTime"`
	Subject   string   `json:"subject"`
	Teachers  []string `json:"teachers"`
	Rooms     []string `json:"rooms"`
	Text      string   `json:"text"`
}

type RawMark struct {
	Name             string  `json:"name"`
	MarkValue        int     `json:"markValue"`
	MarkDisplayValue float64 `json:"markDisplayValue"`
}

type RawExamType struct {
	Name     string `json:"name"`
	LongName string `json:"longname"`
}

type RawGrade struct {
	ID       int         `json:"id"`
	Subject  string      `json:"subject"`
	Date     int         `json:"date"`
	Text     string      `json:"text"`
	Mark     RawMark     `json:"mark"`
	ExamType RawExamType `json:"examType"`
}

type RawAbsence struct {
	ID           int    `json:"id"`
	StartDate    int    `json:"startDate"`
	EndDate      int    `json:"endDate"`
	StartTime    int    `json:"startTime"`
	EndTime      int    `json:"endTime"`
	Reason       string `json:"reason"`
	Text         string `json:"text"`
	IsExcused    bool   `json:"isExcused"`
	ExcuseStatus string `json:"excuseStatus"`
}

type RawDuty struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

type RawClassRole struct {
	ID        int     `json:"id"`
	PersonID  int     `json:"personId"`
	ForeName  string  `json:"foreName"`
	LongName  string  `json:"longName"`
	StartDate int     `json:"startDate"`
	EndDate   int     `json:"endDate"`
	Text      string  `json:"text"`
	Duty      RawDuty `json:"duty"`
}

type RawSchoolYear struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	StartDate int    `json:"startDate"`
	EndDate   int    `json:"endDate"`
}
