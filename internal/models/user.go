package models

// User is the engine's view of the user directory: an identity plus the
// single role it holds. Authentication and the rest of the identity system
// live outside this service.
type User struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	RoleID int64  `json:"role_id"`
}

// Role is a named approval role referenced by steps and limits.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
