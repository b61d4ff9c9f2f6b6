// Package shipping contains the shipping bounded context.
//
// It turns cart quantities into concrete carrier-shippable packages
// (PackagingResolver), decides which carriers may quote a given package
// shape (EligibilityRouter) and defines the ports implemented by the
// infrastructure layer:
//
//   - CarrierClient: one per external rate provider
//   - TokenStore: storage behind the credential cache
//
// Everything in this package is pure and free of I/O. Rate fan-out and
// normalization live in the application layer.
package shipping
