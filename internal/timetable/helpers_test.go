package timetable

import (
	"time"

	"untiswidget/internal/model"
)

var berlin = mustLoad("Europe/Berlin")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func at(date, hhmm int) time.Time {
	return CombineDateTime(date, hhmm, berlin)
}

func lesson(id int, subject string, date, from, to int) model.Lesson {
	l := model.Lesson{
		ID:       id,
		From:     at(date, from),
		To:       at(date, to),
		Duration: 1,
		State:    model.StateNormal,
		Teachers: []model.Stateful[model.Teacher]{{Entity: model.Teacher{ID: 1, Name: "MUE"}, State: model.ElementRegular}},
		Rooms:    []model.Stateful[model.Room]{{Entity: model.Room{ID: 1, Name: "R101"}, State: model.ElementRegular}},
	}
	if subject != "" {
		l.Subject = &model.Stateful[model.Subject]{Entity: model.Subject{ID: len(subject), Name: subject}, State: model.ElementRegular}
	}
	return l
}
