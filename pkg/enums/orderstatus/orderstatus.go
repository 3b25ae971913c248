package orderstatus

import "strings"

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	if len(s.Name) == 0 {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

type Enum struct {
	Pending    Status
	Registered Status
	Cancelled  Status
}

var Statuses = Enum{
	Pending:    Status{Name: "pending"},
	Registered: Status{Name: "registered"},
	Cancelled:  Status{Name: "cancelled"},
}

var All = []Status{
	Statuses.Pending,
	Statuses.Registered,
	Statuses.Cancelled,
}

// ByName returns the status for a given name, or nil if not found.
// "completed" is accepted for records written before orders were "registered".
func ByName(name string) *Status {
	if name == "completed" {
		name = Statuses.Registered.Name
	}
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}
