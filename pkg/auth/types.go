package auth

import "reflect"

// User identifies the signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Session is the observable auth state. A nil *Session means signed out. The
// cached value is replaced wholesale on every detected change, never
// partially mutated.
type Session struct {
	User *User `json:"user"`
}

// Credentials carries the sign-in / sign-up request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserAttributes carries the update_user request body.
type UserAttributes struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// Event tags a session change notification.
type Event string

const (
	EventSignedIn  Event = "SIGNED_IN"
	EventSignedOut Event = "SIGNED_OUT"
)

// sessionEqual compares sessions structurally; two nils are equal.
func sessionEqual(a, b *Session) bool {
	if a == nil || b == nil {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
