// Package notes implements estate notes. The author is always the
// authenticated caller, never taken from the request body.
package notes
