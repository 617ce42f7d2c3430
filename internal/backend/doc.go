// Package backend provides Listing, a Backend that renders generation
// calls as an indented text listing.
//
// Listing is the reference consumer of the ic.Backend contract. It is
// used by the CLI "emit" command and by tests asserting generation order.
package backend
