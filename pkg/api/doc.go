// Package api defines the messages exchanged by the pledgeboard RPC services.
//
// Messages are plain structs serialized as JSON. Money fields are decimal
// strings such as "150.00"; timestamps are RFC 3339.
package api
