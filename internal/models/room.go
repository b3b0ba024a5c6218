package models

// RoomCategory classifies what kind of sessions a room can host.
type RoomCategory string

const (
	RoomLecture  RoomCategory = "LECTURE"
	RoomLab      RoomCategory = "LAB"
	RoomWorkshop RoomCategory = "WORKSHOP"
)

// Room is a teaching space with a fixed capacity and category.
type Room struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Capacity int          `json:"capacity"`
	Category RoomCategory `json:"category"`
}
