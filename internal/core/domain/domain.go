// Package domain holds the records that flow through the ETL: questions,
// representatives and ministries, plus the enumerations persisted with them.
package domain

import (
	"strings"
	"time"
)

// QuestionStatus is the two-valued lifecycle of a question. Values are the
// ones stored in the questions table.
type QuestionStatus string

const (
	StatusPending  QuestionStatus = "en_attente"
	StatusAnswered QuestionStatus = "repondue"
)

// StatusFromAnswered maps the API "is answered" flag onto QuestionStatus.
func StatusFromAnswered(answered bool) QuestionStatus {
	if answered {
		return StatusAnswered
	}

	return StatusPending
}

// QuestionTypeWritten is the only question type the assembly API exposes.
const QuestionTypeWritten = "ecrite"

// Parliamentary group labels derived from the API group code.
const (
	GroupPastef       = "PASTEF"
	GroupTakkuWallu   = "TAKKU WALLU"
	GroupUnaffiliated = "Non inscrits"
)

// Group codes used by the assembly API.
const (
	groupCodePastef     = 1
	groupCodeTakkuWallu = 2
)

// GroupFromCode maps the API group code onto a group label.
func GroupFromCode(code int64) string {
	switch code {
	case groupCodePastef:
		return GroupPastef
	case groupCodeTakkuWallu:
		return GroupTakkuWallu
	default:
		return GroupUnaffiliated
	}
}

// Entities is the named-entity map extracted from a question body.
type Entities struct {
	Persons       []string `json:"personnes"`
	Places        []string `json:"lieux"`
	Organizations []string `json:"organisations"`
	Dates         []string `json:"dates"`
	Amounts       []string `json:"montants"`
}

// Empty reports whether no entity was found.
func (e Entities) Empty() bool {
	return len(e.Persons)+len(e.Places)+len(e.Organizations)+len(e.Dates)+len(e.Amounts) == 0
}

// Question is a written parliamentary question. Number is the global
// identity and the upsert conflict key.
type Question struct {
	Number      int64
	DepositDate time.Time
	Type        string
	Status      QuestionStatus
	Subject     string
	Body        string

	// Populated by the transform stage.
	Response         *string
	ResponseDate     *time.Time
	Theme            *string
	SecondaryTheme   *string
	Keywords         []string
	Entities         *Entities
	Sentiment        *float64
	Urgency          *float64
	Complexity       *float64
	Confidence       *float64
	Subdivisions     []string
	ResponseDelay    *int
	QuestionWords    *int
	ResponseWords    *int
	Language         string
	ProcessingTag    string
	RepresentativeID *int64
	AddresseeID      *int64
	ResponderID      *int64
}

// Answered reports whether the question is marked answered.
func (q Question) Answered() bool {
	return q.Status == StatusAnswered
}

// Representative is a member of the assembly.
type Representative struct {
	ID            int64
	Surname       string
	GivenName     string
	Group         string
	MandateStart  *time.Time
	MandateEnd    *time.Time
	QuestionCount *int
	AnsweredCount *int
}

// FullName is the given name followed by the surname.
func (r Representative) FullName() string {
	return strings.TrimSpace(r.GivenName + " " + r.Surname)
}

// ResponseUpdate carries a late answer for an already persisted question.
type ResponseUpdate struct {
	Number     int64
	Text       string
	Date       *time.Time
	MinistryID *int64
}
