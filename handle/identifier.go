package handle

// Identifier is implemented by values that stand for a host pointer, such as
// the typed wrappers. Codecs and registries unwrap Identifiers to their
// handle before the value reaches the host.
type Identifier interface {
	Handle() Handle
}
