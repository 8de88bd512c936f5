package orders

type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusDeleted Status = "DELETED"
)

var validNext = map[Status]map[Status]bool{
	StatusActive:  {StatusDeleted: true},
	StatusDeleted: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
