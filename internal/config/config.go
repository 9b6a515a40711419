package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrEmptyPath is returned by Load and Save when no path is given.
var ErrEmptyPath = errors.New("config path is empty")

// UntisConfig selects the school server and the timetable element.
type UntisConfig struct {
	// Server is the host, e.g. "mese.webuntis.com".
	Server string `yaml:"server" json:"server"`
	// School is the login name of the school.
	School string `yaml:"school" json:"school"`
	// ElementType is the Untis element type of the timetable owner
	// (5 = student, 1 = class).
	ElementType int `yaml:"elementType" json:"elementType"`
	// ElementID is the id of the timetable owner. Zero means "the
	// logged-in person".
	ElementID int `yaml:"elementId" json:"elementId"`
}

// LogConfig mirrors internal/log options.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// LessonConfig holds the thresholds of the lesson pipeline. All values in
// seconds.
type LessonConfig struct {
	// BreakMin is the longest gap that still joins two lessons into one block.
	BreakMin int `yaml:"breakMin" json:"breakMin"`
	// BreakMax is the shortest break worth a refresh at the end of a lesson.
	BreakMax        int    `yaml:"breakMax" json:"breakMax"`
	AutoAddSubjects bool   `yaml:"autoAddSubjects" json:"autoAddSubjects"`
	DefaultColor    string `yaml:"defaultColor" json:"defaultColor"`
}

// CacheConfig is the max-age per data domain, in seconds.
type CacheConfig struct {
	Lessons     int `yaml:"lessons" json:"lessons"`
	Exams       int `yaml:"exams" json:"exams"`
	Grades      int `yaml:"grades" json:"grades"`
	Absences    int `yaml:"absences" json:"absences"`
	SchoolYears int `yaml:"schoolYears" json:"schoolYears"`
	ClassRoles  int `yaml:"classRoles" json:"classRoles"`
}

// RefreshConfig drives the refresh-time planner. Durations in seconds.
type RefreshConfig struct {
	NormalScope    int `yaml:"normalScope" json:"normalScope"`
	NormalInterval int `yaml:"normalInterval" json:"normalInterval"`
	LazyInterval   int `yaml:"lazyInterval" json:"lazyInterval"`
	// Cron is the fallback schedule used after a failed render pass.
	Cron string `yaml:"cron" json:"cron"`
}

// ViewConfig is the look-ahead/look-back window of a section, in seconds.
type ViewConfig struct {
	Scope int `yaml:"scope" json:"scope"`
}

type ViewsConfig struct {
	Exams    ViewConfig `yaml:"exams" json:"exams"`
	Grades   ViewConfig `yaml:"grades" json:"grades"`
	Absences ViewConfig `yaml:"absences" json:"absences"`
}

// NotificationConfig toggles change notifications per topic.
type NotificationConfig struct {
	Lessons  bool `yaml:"lessons" json:"lessons"`
	Exams    bool `yaml:"exams" json:"exams"`
	Grades   bool `yaml:"grades" json:"grades"`
	Absences bool `yaml:"absences" json:"absences"`
}

// LessonOverride customizes how lessons of one subject are displayed.
type LessonOverride struct {
	Color            string   `yaml:"color,omitempty" json:"color,omitempty"`
	NameOverride     string   `yaml:"nameOverride,omitempty" json:"nameOverride,omitempty"`
	LongNameOverride string   `yaml:"longNameOverride,omitempty" json:"longNameOverride,omitempty"`
	IgnoreInfos      []string `yaml:"ignoreInfos,omitempty" json:"ignoreInfos,omitempty"`
}

// SubjectConfig is a subject override with optional teacher-specific
// overrides keyed by teacher short name.
type SubjectConfig struct {
	LessonOverride `yaml:",inline"`
	Teachers       map[string]LessonOverride `yaml:"teachers,omitempty" json:"teachers,omitempty"`
}

// BasicAuthConfig protects the preview server. Both fields must be set.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

// Settings is the top-level configuration.
type Settings struct {
	// Listen is the HTTP listen address of the preview server.
	Listen string `yaml:"listen" json:"listen"`
	// Timezone is the IANA zone used for all wall-clock arithmetic.
	Timezone  string `yaml:"timezone" json:"timezone"`
	CacheDir  string `yaml:"cacheDir" json:"cacheDir"`
	OutputDir string `yaml:"outputDir" json:"outputDir"`

	BasicAuth *BasicAuthConfig `yaml:"basicAuth,omitempty" json:"basicAuth,omitempty"`

	Log           LogConfig          `yaml:"log" json:"log"`
	Untis         UntisConfig        `yaml:"untis" json:"untis"`
	Config        LessonConfig       `yaml:"config" json:"config"`
	Cache         CacheConfig        `yaml:"cache" json:"cache"`
	Refresh       RefreshConfig      `yaml:"refresh" json:"refresh"`
	Views         ViewsConfig        `yaml:"views" json:"views"`
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	Subjects map[string]SubjectConfig `yaml:"subjects" json:"subjects"`

	mu    sync.RWMutex
	dirty bool
}

// DefaultSettings returns an in-memory default configuration.
func DefaultSettings() *Settings {
	return &Settings{
		Listen:    "127.0.0.1:8080",
		Timezone:  "Europe/Berlin",
		CacheDir:  "/var/lib/untiswidget/cache",
		OutputDir: "/var/lib/untiswidget",
		Log:       LogConfig{Level: "info", Format: "console"},
		Untis:     UntisConfig{ElementType: 5},
		Config: LessonConfig{
			BreakMin:        7 * 60,
			BreakMax:        20 * 60,
			AutoAddSubjects: true,
			DefaultColor:    "#444444",
		},
		Cache: CacheConfig{
			Lessons:     15 * 60,
			Exams:       4 * 3600,
			Grades:      4 * 3600,
			Absences:    4 * 3600,
			SchoolYears: 7 * 86400,
			ClassRoles:  86400,
		},
		Refresh: RefreshConfig{
			NormalScope:    8 * 3600,
			NormalInterval: 3600,
			LazyInterval:   4 * 3600,
			Cron:           "*/30 * * * *",
		},
		Views: ViewsConfig{
			Exams:    ViewConfig{Scope: 21 * 86400},
			Grades:   ViewConfig{Scope: 14 * 86400},
			Absences: ViewConfig{Scope: 14 * 86400},
		},
		Notifications: NotificationConfig{
			Lessons:  true,
			Exams:    true,
			Grades:   true,
			Absences: true,
		},
		Subjects: map[string]SubjectConfig{},
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (s *Settings) Normalize() {
	def := DefaultSettings()
	if s.Listen == "" {
		s.Listen = def.Listen
	}
	if s.Timezone == "" {
		s.Timezone = def.Timezone
	}
	if s.CacheDir == "" {
		s.CacheDir = def.CacheDir
	}
	if s.OutputDir == "" {
		s.OutputDir = def.OutputDir
	}
	if s.Log.Level == "" {
		s.Log.Level = def.Log.Level
	}
	if s.Log.Format == "" {
		s.Log.Format = def.Log.Format
	}
	if s.Untis.ElementType == 0 {
		s.Untis.ElementType = def.Untis.ElementType
	}
	// A zero BreakMin is valid: only back-to-back lessons combine.
	if s.Config.BreakMin < 0 {
		s.Config.BreakMin = def.Config.BreakMin
	}
	if s.Config.BreakMax <= 0 {
		s.Config.BreakMax = def.Config.BreakMax
	}
	if s.Config.DefaultColor == "" {
		s.Config.DefaultColor = def.Config.DefaultColor
	}
	positive(&s.Cache.Lessons, def.Cache.Lessons)
	positive(&s.Cache.Exams, def.Cache.Exams)
	positive(&s.Cache.Grades, def.Cache.Grades)
	positive(&s.Cache.Absences, def.Cache.Absences)
	positive(&s.Cache.SchoolYears, def.Cache.SchoolYears)
	positive(&s.Cache.ClassRoles, def.Cache.ClassRoles)
	positive(&s.Refresh.NormalScope, def.Refresh.NormalScope)
	positive(&s.Refresh.NormalInterval, def.Refresh.NormalInterval)
	positive(&s.Refresh.LazyInterval, def.Refresh.LazyInterval)
	if s.Refresh.Cron == "" {
		s.Refresh.Cron = def.Refresh.Cron
	}
	positive(&s.Views.Exams.Scope, def.Views.Exams.Scope)
	positive(&s.Views.Grades.Scope, def.Views.Grades.Scope)
	positive(&s.Views.Absences.Scope, def.Views.Absences.Scope)
	if s.Subjects == nil {
		s.Subjects = map[string]SubjectConfig{}
	}
}

func positive(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

// Seconds converts a settings value to a time.Duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Location resolves Timezone, falling back to time.Local.
func (s *Settings) Location() *time.Location {
	if s.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Subject returns the override entry for a subject short name.
func (s *Settings) Subject(short string) (SubjectConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.Subjects[short]
	return sc, ok
}

// EnsureSubject registers an empty entry for a subject seen for the first
// time. It reports whether an entry was added.
func (s *Settings) EnsureSubject(short string) bool {
	if short == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Subjects == nil {
		s.Subjects = map[string]SubjectConfig{}
	}
	if _, ok := s.Subjects[short]; ok {
		return false
	}
	s.Subjects[short] = SubjectConfig{}
	s.dirty = true
	return true
}

// Dirty reports whether the settings were mutated since Load or Save.
func (s *Settings) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Load loads settings from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default file is written with 0600
//     perms and the defaults are returned.
//   - Otherwise the YAML is decoded over the defaults, so keys missing
//     from the file keep their default value.
func Load(path string) (*Settings, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			s := DefaultSettings()
			if err := Save(path, s); err != nil {
				// Even if save fails, return defaults with error so caller can decide.
				return s, err
			}
			return s, nil
		}
		return nil, err
	}

	s := DefaultSettings()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}
	s.Normalize()

	return s, nil
}

// Save writes settings atomically via a temp file + rename and leaves the
// file with 0600 permissions.
func Save(path string, s *Settings) error {
	if path == "" {
		return ErrEmptyPath
	}
	if s == nil {
		return errors.New("settings are nil")
	}

	s.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".untiswidget-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	s.dirty = false
	return nil
}

// Save delegates to the package-level Save function.
func (s *Settings) Save(path string) error {
	return Save(path, s)
}
