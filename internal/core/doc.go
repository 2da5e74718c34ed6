// Package core provides the business logic of the dealership back end.
//
// It sits between the HTTP layer and the repositories and is independent of
// any transport, so handlers, the reconciler and tests drive the same code.
//
// # Listings
//
// A listing is written in two phases. The row is inserted first with
// sync_state "awaiting_children" and the requested feature tags recorded in
// pending_features. Features are then replaced in one transaction and the
// pending images are uploaded one at a time. When every child write succeeds
// the listing is marked "complete". A feature failure leaves the listing in
// "awaiting_children" for the reconciler to retry; an image failure moves it
// to "needs_repair" because the files are gone once the request ends. Child
// failures are logged and reported as warnings but never fail the request.
//
// # Financing
//
// [Service.SubmitFinancing] implements the wizard's submitter: one insert of
// every field and document URL, status "new", followed by best-effort
// notifications.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has its own code prefix:
//
//   - DB: database errors and missing records
//   - VAL: invalid input
//   - FILE / IMG: uploads and listing images
//   - WIZ: financing form sessions
//   - AUTH: admin sessions
//
// # Audit Logging
//
// Every admin mutation is recorded in the audit log with the admin session
// and the client address taken from the request context.
package core
