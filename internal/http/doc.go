// Package http provides HTTP handlers and middleware for the booking API.
//
// The router exposes the following endpoints:
//   - POST /login: issues a session token. Body: {"email","password"}. Response:
//     {"token","expires_at","principal":{"operator_id","is_admin"}} with the token
//     also surfaced via the `X-Session-Token` header and a `session_token` cookie.
//   - POST /logout: revokes the current session token extracted from the
//     Authorization header or session cookie. Returns 204 No Content and clears
//     the cookie.
//   - GET /resources, POST /resources, GET /resources/{id}, PUT /resources/{id},
//     DELETE /resources/{id}: catalog endpoints exchanging the `resourceDTO`
//     payload defined in resource_handler.go. Reads are available to any
//     authenticated operator while mutations require admin privileges.
//   - GET /bookings, POST /bookings, GET /bookings/{id}, PUT /bookings/{id},
//     DELETE /bookings/{id}: booking endpoints exchanging the `bookingDTO`
//     payload defined in booking_handler.go. Updates take a partial body where
//     absent fields keep their stored values. Conflicting dates yield 409 with
//     the full list of blocking resource/booking pairs.
//   - POST /bookings/{id}/cancel: transitions the booking to cancelled,
//     releasing its resource holds. Idempotent.
//   - GET /availability?resources=a,b&start=2025-07-01&end=2025-07-03: dry-run
//     conflict check over a candidate assignment set without writing anything.
//     `exclude_booking_id` omits one booking's own holds, for edit previews.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
