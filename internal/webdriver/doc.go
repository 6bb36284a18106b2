// Package webdriver speaks the handful of W3C WebDriver endpoints a
// session needs from the control-channel executable: readiness, session
// creation and deletion, top-level navigation, and the chromedriver
// specific shutdown endpoint. Everything else goes over the browser's
// debugger address.
package webdriver
