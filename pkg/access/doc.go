// Package access implements the estate access-control core: resolving a
// caller's role on an estate (OWNER, EDITOR, VIEWER) and guarding every
// mutation behind that resolution.
//
// Resolution is performed fresh on every request. There is no cache and
// no TTL: a collaborator revoked between two requests must lose access
// on the very next one.
package access
