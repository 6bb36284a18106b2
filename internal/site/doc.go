// Package site structures application-specific automation around two
// capability interfaces: an Authenticator that knows how to log in to one
// web site, and the navigation.Navigator of the session it drives.
//
// A Site owns the login flow; a Page navigates with retries and uses the
// site's login as its re-authentication step, so an expired session is
// repaired between attempts.
package site
