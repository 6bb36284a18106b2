// Package navigation drives page loads with bounded retries.
//
// A navigation moves through Loading, Verifying and Recovering until it
// ends in Succeeded or Failed. Every failed attempt goes through
// Recovering, which calls the re-authentication callback (if any) and, when
// retries remain, sleeps backoff*retry² before loading again. The pause
// grows quadratically because login endpoints are the usual culprit and
// recover slowly.
package navigation
