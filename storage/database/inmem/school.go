package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pobon98/school-management/core"
	"github.com/pobon98/school-management/core/announcement"
	"github.com/pobon98/school-management/core/assignment"
	"github.com/pobon98/school-management/core/event"
	"github.com/pobon98/school-management/core/student"
	"github.com/pobon98/school-management/core/teacher"
)

type (
	studentRepository      struct{ db *DB }
	teacherRepository      struct{ db *DB }
	eventRepository        struct{ db *DB }
	announcementRepository struct{ db *DB }
	assignmentRepository   struct{ db *DB }

	assignmentView struct {
		lastSeenAt time.Time
	}
)

var (
	// interface compliance checks
	_ student.Repository      = (*studentRepository)(nil)
	_ teacher.Repository      = (*teacherRepository)(nil)
	_ event.Repository        = (*eventRepository)(nil)
	_ announcement.Repository = (*announcementRepository)(nil)
	_ assignment.Repository   = (*assignmentRepository)(nil)
)

func NewStudentRepository(db *DB) *studentRepository { return &studentRepository{db: db} }
func NewTeacherRepository(db *DB) *teacherRepository { return &teacherRepository{db: db} }
func NewEventRepository(db *DB) *eventRepository     { return &eventRepository{db: db} }

func NewAnnouncementRepository(db *DB) *announcementRepository {
	return &announcementRepository{db: db}
}

func NewAssignmentRepository(db *DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

func nowIfZero(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

// students

func (repo *studentRepository) CreateStudent(_ context.Context, st student.Student) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	st.ID = newID(st.ID)
	st.CreatedAt = nowIfZero(st.CreatedAt)
	repo.db.students = append(repo.db.students, st)
	return st, nil
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter) ([]student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	students := make([]student.Student, 0, len(repo.db.students))
	for _, st := range repo.db.students {
		if filter.Class != "" && st.Class.String != filter.Class {
			continue
		}
		if filter.Email != "" && !strings.EqualFold(st.Email.String, filter.Email) {
			continue
		}
		students = append(students, st)
	}
	return students, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id string) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, st := range repo.db.students {
		if st.ID == id {
			return st, nil
		}
	}
	return student.Student{}, core.ErrNotFound
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i, st := range repo.db.students {
		if st.ID == id {
			repo.db.students = append(repo.db.students[:i], repo.db.students[i+1:]...)
			repo.db.deleteStudentRecords(id)
			return nil
		}
	}
	return core.ErrNotFound
}

// teachers

func (repo *teacherRepository) CreateTeacher(_ context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t.ID = newID(t.ID)
	t.CreatedAt = nowIfZero(t.CreatedAt)
	repo.db.teachers = append(repo.db.teachers, t)
	return t, nil
}

func (repo *teacherRepository) QueryTeachers(_ context.Context) ([]teacher.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	teachers := append(make([]teacher.Teacher, 0, len(repo.db.teachers)), repo.db.teachers...)
	sort.SliceStable(teachers, func(i, j int) bool { return teachers[i].FirstName < teachers[j].FirstName })
	return teachers, nil
}

func (repo *teacherRepository) DeleteTeacher(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i, t := range repo.db.teachers {
		if t.ID == id {
			repo.db.teachers = append(repo.db.teachers[:i], repo.db.teachers[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

// events

func (repo *eventRepository) CreateEvent(_ context.Context, ev event.Event) (event.Event, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	ev.ID = newID(ev.ID)
	ev.CreatedAt = nowIfZero(ev.CreatedAt)
	repo.db.events = append(repo.db.events, ev)
	return ev, nil
}

func (repo *eventRepository) QueryEvents(_ context.Context) ([]event.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	events := append(make([]event.Event, 0, len(repo.db.events)), repo.db.events...)
	sort.SliceStable(events, func(i, j int) bool {
		di, dj := events[i].Date, events[j].Date
		if di.Valid != dj.Valid {
			return di.Valid
		}
		if di.Valid && !di.Time.Equal(dj.Time) {
			return di.Time.Before(dj.Time)
		}
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

func (repo *eventRepository) GetEvent(_ context.Context, id string) (event.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, ev := range repo.db.events {
		if ev.ID == id {
			return ev, nil
		}
	}
	return event.Event{}, core.ErrNotFound
}

func (repo *eventRepository) UpdateEvent(_ context.Context, ev event.Event) (event.Event, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i, orig := range repo.db.events {
		if orig.ID == ev.ID {
			ev.CreatedAt = orig.CreatedAt
			repo.db.events[i] = ev
			return ev, nil
		}
	}
	return event.Event{}, core.ErrNotFound
}

func (repo *eventRepository) DeleteEvent(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i, ev := range repo.db.events {
		if ev.ID == id {
			repo.db.events = append(repo.db.events[:i], repo.db.events[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

// announcements

func (repo *announcementRepository) CreateAnnouncement(_ context.Context, an announcement.Announcement) (announcement.Announcement, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	an.ID = newID(an.ID)
	an.CreatedAt = nowIfZero(an.CreatedAt)
	repo.db.announcements = append(repo.db.announcements, an)
	return an, nil
}

func (repo *announcementRepository) QueryAnnouncements(_ context.Context, classes ...string) ([]announcement.Announcement, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	wanted := func(an announcement.Announcement) bool {
		if len(classes) == 0 || an.Class.String == "" {
			return true
		}
		for _, c := range classes {
			if an.Class.String == c {
				return true
			}
		}
		return false
	}

	out := make([]announcement.Announcement, 0, len(repo.db.announcements))
	for i := len(repo.db.announcements) - 1; i >= 0; i-- {
		if an := repo.db.announcements[i]; wanted(an) {
			out = append(out, an)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (repo *announcementRepository) DeleteAnnouncement(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i, an := range repo.db.announcements {
		if an.ID == id {
			repo.db.announcements = append(repo.db.announcements[:i], repo.db.announcements[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

// assignments

func (repo *assignmentRepository) CreateAssignment(_ context.Context, as assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	as.ID = newID(as.ID)
	as.CreatedAt = nowIfZero(as.CreatedAt)
	repo.db.assignments = append(repo.db.assignments, as)
	return as, nil
}

func (repo *assignmentRepository) QueryAssignments(_ context.Context, class string) ([]assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	out := make([]assignment.Assignment, 0, len(repo.db.assignments))
	for _, as := range repo.db.assignments {
		if class == "" || as.Class == class {
			out = append(out, as)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].DueDate, out[j].DueDate
		if di.Valid != dj.Valid {
			return di.Valid
		}
		if di.Valid && !di.Time.Equal(dj.Time) {
			return di.Time.Before(dj.Time)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (repo *assignmentRepository) DeleteAssignment(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i, as := range repo.db.assignments {
		if as.ID == id {
			repo.db.assignments = append(repo.db.assignments[:i], repo.db.assignments[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (repo *assignmentRepository) GetLastSeen(_ context.Context, userID string) (time.Time, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.lastSeen[userID]; ok {
		return v.lastSeenAt, nil
	}
	return time.Time{}, core.ErrNotFound
}

func (repo *assignmentRepository) SetLastSeen(_ context.Context, userID string, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.lastSeen[userID] = assignmentView{lastSeenAt: at.UTC()}
	return nil
}
