package core

type OrderParams struct {
	Port int
}

const (
	MaxGuestNameLen = 100
	MaxRoomNoLen    = 20
	MaxNotesLen     = 1000
	MaxItems        = 100
	MaxItemQuantity = 1000

	// in seconds for db response
	WaitTime = 20

	// DateLayout is the calendar-day format of list filters and exports.
	DateLayout = "2006-01-02"
)
