// Package srv implements a JSON-oriented HTTP API server: a path template
// router with single-segment and variable-length captures, and a per-request
// processing pipeline that reads the body under size and time limits,
// negotiates the content type, merges parameters from body, query string and
// path, and dispatches to a registered handler.
//
// # Server
//
// Create a server, register handlers, and serve:
//
//	s := srv.NewServer(srv.Options{})
//	s.Add(http.MethodGet, "/user/{userId}", func(w http.ResponseWriter, r *srv.Request) {
//		s.WriteJSON(w, http.StatusOK, r.Params)
//	}, nil)
//	s.ListenAndServe(":8080")
//
// The server accepts GET, POST, PUT and DELETE; any other method yields
// 405 Method Not Allowed (RFC 9110 Section 15.5.6).
//
// # Path Templates
//
// Templates are built from literal segments and two capture forms:
//
//	/user/{userId}        single-segment capture, bound as a string
//	/files/[parts]        variable-length capture, bound as a []string
//	/files/[parts:2]      exactly 2 segments
//	/files/[parts:1:8]    between 1 and 8 segments
//
// A variable-length capture defaults to bounds 1..32. When several capture
// lengths could satisfy a request, the shortest length that lets the rest of
// the template match wins. Captured values are percent-decoded per
// RFC 3986 Section 2.1; a value that fails to decode simply does not match.
//
// A trailing slash in a template is significant: the request must carry it.
// A template without one matches both request forms.
//
// # Parameters
//
// Handlers receive a Request whose Params field merges the three parameter
// sources in the order body, query string, path - a later source overwrites
// an identically named key from an earlier one, and every overwrite is
// logged. Per-source validators and a merged-object validator can be
// attached through HandlerOptions.
//
// # Request Bodies
//
// Bodies are accumulated under a configurable size limit and read timeout.
// Supported media types are application/json (charset utf-8 only) and
// application/x-www-form-urlencoded; anything else is rejected with
// 400 Bad Request. Query strings are not permitted on POST and PUT
// requests, and bodies are not permitted on GET and DELETE requests.
//
// # Errors
//
// Every framework-generated error response is a JSON object with the shape
//
//	{"code": 404, "message": "Not Found"}
//
// where message is the canonical reason phrase of the status code, with
// 400 responses optionally carrying a parenthesized detail.
package srv
