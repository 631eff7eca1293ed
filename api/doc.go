// Package api provides the client for the library-management backend.
//
// Every resource client applies the same convention through a shared Client:
//
//   - the URL is the base URL, "/api" and a resource path such as "/books/list"
//   - authenticated calls carry "Authorization: Bearer <token>" taken from a
//     TokenSource at call time, and no header at all when there is no token
//   - request bodies are JSON with "Content-Type: application/json"
//   - each operation accepts specific statuses (200, or 200 and 201 for creates)
//
// # Usage
//
//	sess := session.New()
//	client, err := api.NewClient("https://localhost:8443", sess, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	backend := api.NewHTTPBackend(client)
//	books, err := backend.Books.List(ctx)
//
// # Error Handling
//
// Failures come in three flavours:
//
//   - ServerError: a response with an unaccepted status. Its message comes from the
//     body's "message" field, else the collapsed body truncated to 300 characters,
//     else an operation specific fallback. Error() reads "Code <N>: <message>".
//   - TransportError: no response was obtained. It wraps the cause, so
//     errors.Is(err, context.Canceled) works after cancellation.
//   - ValidationError: a local precondition failed and nothing was sent.
//
// KindOf and StatusCode classify any returned error without string parsing:
//
//	switch api.KindOf(err) {
//	case api.KindServerError:
//		if api.StatusCode(err) == http.StatusUnauthorized {
//			// Log in again
//		}
//	case api.KindTransportFailure:
//		// Backend unreachable
//	}
//
// Nothing in this package retries.
package api
