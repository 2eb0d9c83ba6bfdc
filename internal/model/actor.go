package model

// Actor is the explicit tenant/user context passed into every operation.
// Session management itself lives outside this service; the HTTP layer fills
// this from the authenticated request.
type Actor struct {
	UserID   uint
	Role     string
	SchoolID uint
}
