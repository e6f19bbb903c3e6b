// Package authrouter binds incoming web requests to pluggable
// authentication services, manages login and logout session state through
// cookies, and forwards authenticated actions to a command-dispatch layer.
//
// Routing:
//   - ServiceRouter owns the route table: the login and logout paths plus a
//     prefixed /:service segment (and /:service/callback) that selects a
//     registered service by name, defaulting to "local". Unmatched paths
//     fall through to the next handler, so the router composes as ordinary
//     middleware.
//
// Collaborators:
//   - Bus is the command dispatcher all business logic lives behind: login,
//     logout, token auth, the clean sanitizer, and the service trigger
//     actions. StrategyLib performs the actual credential verification or
//     third-party handshake; the router never inspects strategy
//     configuration, it only stores and forwards it.
//
// Redirect policy:
//   - Every terminal response is either an HTTP redirect or a JSON body.
//     RedirectEngine decides per request using the content type, explicit
//     query flags, and per-action configuration, threading a single-use
//     url-prefix cookie through multi-hop flows. JSON clients always get
//     structured {ok, why} bodies; browser clients get redirects.
package authrouter
