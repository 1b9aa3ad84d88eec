// Package schema holds the wire model shared with generators: anonymous value
// shapes (Format), declared containers (ContainerFormat, VariantFormat) and
// the Input/Output documents.
//
// JSON follows the externally tagged convention. A case with no payload is a
// bare string ("U32", "UnitStruct", "External"); every other case is an
// object with exactly one key naming the case. Attribute bags are flattened
// into the named item that owns them.
//
// The only reference between trees is TypeName.Ident, so recursive
// declarations serialize without cycles.
package schema
