// Package auth issues and verifies the bearer tokens that guard the registry
// mirror API.
//
// Tokens are HS256 JWTs minted by an operator (scalereg token) and carry a
// subject and one of three roles:
//   - reader: fetch configs and addresses, report an address
//   - writer: reader plus create devices and replace configs
//   - admin: writer plus list every device
//
// The role-permission mapping is static; verifying a token never touches the
// database.
package auth
