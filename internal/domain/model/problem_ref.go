package model

import (
	"regexp"
	"strconv"
	"time"

	"potd_engine/internal/common"
)

var dateRefPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ProblemRef points at a problem either by id or by date.
type ProblemRef interface {
	isProblemRef()
	String() string
}

type RefByID int64

type RefByDate time.Time

func (RefByID) isProblemRef()   {}
func (RefByDate) isProblemRef() {}

func (r RefByID) String() string   { return strconv.FormatInt(int64(r), 10) }
func (r RefByDate) String() string { return time.Time(r).Format(DateLayout) }

// ParseProblemRef accepts "2024-03-01" or a decimal id.
func ParseProblemRef(s string) (ProblemRef, error) {
	if dateRefPattern.MatchString(s) {
		d, err := ParseDate(s)
		if err != nil {
			return nil, err
		}
		return RefByDate(d), nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 || s[0] == '+' {
		return nil, common.ErrInvalidProblemRef
	}
	return RefByID(id), nil
}
