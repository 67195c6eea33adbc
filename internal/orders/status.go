package orders

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusFailed     Status = "FAILED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusCancelled: true, StatusFailed: true},
	StatusProcessing: {StatusCompleted: true, StatusCancelled: true, StatusFailed: true},
	StatusCompleted:  {},
	StatusCancelled:  {},
	StatusFailed:     {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func ValidStatus(s string) bool {
	_, ok := validNext[Status(s)]
	return ok
}
