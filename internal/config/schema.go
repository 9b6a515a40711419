package config

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Node is one element of the settings schema. The set of node kinds is
// closed: Category, Map and Value.
type Node interface {
	Key() string
	node()
}

// Category groups a fixed set of named children.
type Category struct {
	Name     string
	Children []Node
}

// Map holds entries keyed by user data, e.g. subjects by short name.
type Map struct {
	Name    string
	Entries []Node
}

// ValueKind is the editor hint of a leaf.
type ValueKind int

const (
	KindString ValueKind = iota
	KindBool
	KindSeconds
	KindInt
	KindList
)

func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindSeconds:
		return "seconds"
	case KindInt:
		return "int"
	case KindList:
		return "list"
	default:
		return "string"
	}
}

// Value is a leaf setting.
type Value struct {
	Name    string
	Kind    ValueKind
	Current any
}

func (c Category) Key() string { return c.Name }
func (m Map) Key() string      { return m.Name }
func (v Value) Key() string    { return v.Name }

func (Category) node() {}
func (Map) node()      {}
func (Value) node()    {}

// Visitor receives every node of a tree walk together with its depth.
type Visitor interface {
	Category(c Category, depth int)
	Map(m Map, depth int)
	Value(v Value, depth int)
}

// Walk visits n and its descendants depth-first, parents before children.
func Walk(n Node, v Visitor) {
	walk(n, v, 0)
}

func walk(n Node, v Visitor, depth int) {
	switch t := n.(type) {
	case Category:
		v.Category(t, depth)
		for _, c := range t.Children {
			walk(c, v, depth+1)
		}
	case Map:
		v.Map(t, depth)
		for _, e := range t.Entries {
			walk(e, v, depth+1)
		}
	case Value:
		v.Value(t, depth)
	}
}

// Describe builds the schema tree of s with current values.
func (s *Settings) Describe() Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Category{Name: "settings", Children: []Node{
		Category{Name: "config", Children: []Node{
			Value{Name: "breakMin", Kind: KindSeconds, Current: s.Config.BreakMin},
			Value{Name: "breakMax", Kind: KindSeconds, Current: s.Config.BreakMax},
			Value{Name: "autoAddSubjects", Kind: KindBool, Current: s.Config.AutoAddSubjects},
			Value{Name: "defaultColor", Kind: KindString, Current: s.Config.DefaultColor},
		}},
		Category{Name: "cache", Children: []Node{
			Value{Name: "lessons", Kind: KindSeconds, Current: s.Cache.Lessons},
			Value{Name: "exams", Kind: KindSeconds, Current: s.Cache.Exams},
			Value{Name: "grades", Kind: KindSeconds, Current: s.Cache.Grades},
			Value{Name: "absences", Kind: KindSeconds, Current: s.Cache.Absences},
			Value{Name: "schoolYears", Kind: KindSeconds, Current: s.Cache.SchoolYears},
			Value{Name: "classRoles", Kind: KindSeconds, Current: s.Cache.ClassRoles},
		}},
		Category{Name: "refresh", Children: []Node{
			Value{Name: "normalScope", Kind: KindSeconds, Current: s.Refresh.NormalScope},
			Value{Name: "normalInterval", Kind: KindSeconds, Current: s.Refresh.NormalInterval},
			Value{Name: "lazyInterval", Kind: KindSeconds, Current: s.Refresh.LazyInterval},
			Value{Name: "cron", Kind: KindString, Current: s.Refresh.Cron},
		}},
		Category{Name: "views", Children: []Node{
			Category{Name: "exams", Children: []Node{Value{Name: "scope", Kind: KindSeconds, Current: s.Views.Exams.Scope}}},
			Category{Name: "grades", Children: []Node{Value{Name: "scope", Kind: KindSeconds, Current: s.Views.Grades.Scope}}},
			Category{Name: "absences", Children: []Node{Value{Name: "scope", Kind: KindSeconds, Current: s.Views.Absences.Scope}}},
		}},
		Category{Name: "notifications", Children: []Node{
			Value{Name: "lessons", Kind: KindBool, Current: s.Notifications.Lessons},
			Value{Name: "exams", Kind: KindBool, Current: s.Notifications.Exams},
			Value{Name: "grades", Kind: KindBool, Current: s.Notifications.Grades},
			Value{Name: "absences", Kind: KindBool, Current: s.Notifications.Absences},
		}},
		s.describeSubjects(),
	}}
}

func (s *Settings) describeSubjects() Map {
	m := Map{Name: "subjects"}
	for _, short := range sortedKeys(s.Subjects) {
		sc := s.Subjects[short]
		children := overrideNodes(sc.LessonOverride)
		if len(sc.Teachers) > 0 {
			teachers := Map{Name: "teachers"}
			for _, t := range sortedKeys(sc.Teachers) {
				teachers.Entries = append(teachers.Entries, Category{Name: t, Children: overrideNodes(sc.Teachers[t])})
			}
			children = append(children, teachers)
		}
		m.Entries = append(m.Entries, Category{Name: short, Children: children})
	}
	return m
}

func overrideNodes(o LessonOverride) []Node {
	return []Node{
		Value{Name: "color", Kind: KindString, Current: o.Color},
		Value{Name: "nameOverride", Kind: KindString, Current: o.NameOverride},
		Value{Name: "longNameOverride", Kind: KindString, Current: o.LongNameOverride},
		Value{Name: "ignoreInfos", Kind: KindList, Current: o.IgnoreInfos},
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Printer writes an indented outline of the tree.
type Printer struct {
	W io.Writer
}

func (p Printer) Category(c Category, depth int) {
	fmt.Fprintf(p.W, "%s%s:\n", strings.Repeat("  ", depth), c.Name)
}

func (p Printer) Map(m Map, depth int) {
	fmt.Fprintf(p.W, "%s%s: (%d entries)\n", strings.Repeat("  ", depth), m.Name, len(m.Entries))
}

func (p Printer) Value(v Value, depth int) {
	fmt.Fprintf(p.W, "%s%s = %v [%s]\n", strings.Repeat("  ", depth), v.Name, v.Current, v.Kind)
}
