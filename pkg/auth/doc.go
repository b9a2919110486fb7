// Package auth wraps the stateless cookie-based auth endpoints into an
// observable session. A shared timer polls /auth/session and fans detected
// changes out to every registered callback; one-shot operations (sign in,
// sign up, sign out) update the cached session immediately and surface their
// errors to the caller. Poll failures are logged and swallowed so the session
// stream stays resilient to transient connectivity loss.
package auth
