// Package timezones serves the IANA zone list as choice options. The list is
// embedded; Loader searches it with the request query.
package timezones
