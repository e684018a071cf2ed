package models

import "strings"

// Department is one of the fixed department codes a caption is tagged with.
type Department string

const (
	DepartmentIT  Department = "IT"
	DepartmentCSE Department = "CSE"
	DepartmentEC  Department = "EC"
	DepartmentEEE Department = "EEE"
	DepartmentME  Department = "ME"
	DepartmentEP  Department = "EP"
	DepartmentPT  Department = "PT"
)

// DepartmentInfo pairs a department code with its display label.
type DepartmentInfo struct {
	Code  Department `json:"code"`
	Label string     `json:"label"`
}

var departments = []DepartmentInfo{
	{Code: DepartmentIT, Label: "Information Technology"},
	{Code: DepartmentCSE, Label: "Computer Science & Engineering"},
	{Code: DepartmentEC, Label: "Electronics & Communication"},
	{Code: DepartmentEEE, Label: "Electrical & Electronics Engineering"},
	{Code: DepartmentME, Label: "Mechanical Engineering"},
	{Code: DepartmentEP, Label: "Engineering Physics"},
	{Code: DepartmentPT, Label: "Production Technology"},
}

// Year bounds for a profile's year of study.
const (
	MinYear = 1
	MaxYear = 4
)

// Departments returns the fixed department list in display order.
func Departments() []DepartmentInfo {
	out := make([]DepartmentInfo, len(departments))
	copy(out, departments)
	return out
}

// ParseDepartment normalizes s and reports whether it names a known department.
func ParseDepartment(s string) (Department, bool) {
	d := Department(strings.ToUpper(strings.TrimSpace(s)))
	return d, d.Valid()
}

// Valid reports whether d is one of the fixed department codes.
func (d Department) Valid() bool {
	for _, info := range departments {
		if info.Code == d {
			return true
		}
	}
	return false
}

// Label returns the display label, or the raw code when unknown.
func (d Department) Label() string {
	for _, info := range departments {
		if info.Code == d {
			return info.Label
		}
	}
	return string(d)
}
