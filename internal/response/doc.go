// Package response holds the transport-agnostic HTTP result shared by the
// in-page fetch path and the standalone client.
//
// A Response is backed by exactly one of two sources:
//
//   - a FetchResult decoded from a script evaluated inside the page, whose
//     body, text and JSON were already computed by the browser
//   - an *http.Response from the standalone client, whose body is read only
//     when a view asks for it (or streamed with WriteStream)
//
// Derived views (Content, Text, Document, Node, JSON) are computed at most
// once. A view that does not apply, such as Document on a JSON body, is
// nil; it never turns into an error and never affects the other views.
package response
