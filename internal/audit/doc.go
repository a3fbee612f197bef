// Package audit records the change history of the registry mirror.
//
// The API server records one Entry per accepted write (device creation,
// config replacement, address update) with the token subject that made it.
// Admins read the trail through GET {base}/audit.
package audit
