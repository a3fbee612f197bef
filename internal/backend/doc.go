// Package backend is the HTTP client for the remote registry mirror.
//
// Routes, relative to the API root P:
//
//	POST P/{model}                    201 + identity JSON
//	GET  P/{model}/{serial}           200 + config JSON
//	PUT  P/{model}/{serial}           200
//	GET  P/address/{model}/{serial}   200 + {"address": "..."}
//	PUT  P/address/{model}/{serial}   200
//
// Every request carries "Authorization: Bearer <token>". Pull is the
// exception: it reads a public export endpoint without credentials.
//
// Errors use the registry taxonomy so local and remote failures are handled
// the same way:
//
//	cfg, err := client.GetConfig(ctx, id)
//	if status, ok := registry.StatusOf(err); ok && status == http.StatusNotFound {
//	    // unknown device
//	}
//
// AsyncClient offers the same calls returning a channel that receives one
// Result.
package backend
