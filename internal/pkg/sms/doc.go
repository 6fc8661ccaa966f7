// Package sms sends text messages through a provider. Callers depend on the
// Sender interface; the HTTP gateway driver talks to a JSON API and the log
// driver only writes the delivery to the application log.
package sms
