// Package inmemdb keeps every repository in memory. It backs the tests and DEBUG demos.
package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/pobon98/school-management/core/academic"
	"github.com/pobon98/school-management/core/admission"
	"github.com/pobon98/school-management/core/announcement"
	"github.com/pobon98/school-management/core/assignment"
	"github.com/pobon98/school-management/core/event"
	"github.com/pobon98/school-management/core/result"
	"github.com/pobon98/school-management/core/student"
	"github.com/pobon98/school-management/core/teacher"
	"github.com/pobon98/school-management/core/user"
)

// DB holds one table per record type, guarded by a single lock.
type DB struct {
	mutex sync.RWMutex

	users         map[string]*user.User
	students      []student.Student // arrival order
	teachers      []teacher.Teacher
	events        []event.Event
	announcements []announcement.Announcement
	assignments   []assignment.Assignment
	lastSeen      map[string]assignmentView
	terms         []academic.Term
	subjects      []academic.Subject
	results       map[resultKey]result.Result
	cgpas         map[cgpaKey]result.TermCgpa
	inquiries     []admission.Inquiry

	// rejected makes SaveBatch fail on the marks or CGPA of these students
	rejected map[string]string // student id -> field
}

func NewDB() *DB {
	return &DB{
		users:    make(map[string]*user.User),
		lastSeen: make(map[string]assignmentView),
		results:  make(map[resultKey]result.Result),
		cgpas:    make(map[cgpaKey]result.TermCgpa),
		rejected: make(map[string]string),
	}
}

func newID(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}
