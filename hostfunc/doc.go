// Package hostfunc describes and hosts the remote API table: the host's
// scripting functions, each addressed by name and called with positional
// arguments.
//
// # Signatures
//
// Every function has a statically declared [Signature]. Signatures live in a
// [Catalog] shared by both sides of the process boundary, so the client can
// reject a misspelt name or a wrong argument count before anything is sent.
//
//	cat, err := hostfunc.NewCatalog(hostfunc.Signature{
//	    Name:    "CountTracks",
//	    Params:  []hostfunc.Param{{Name: "proj", Kind: hostfunc.KindHandle, Tag: "ReaProject"}},
//	    Returns: hostfunc.KindInt,
//	})
//
// # Registry
//
// The [Registry] maps names to implementations. Registration is validated
// against the catalog:
//
//	registry := hostfunc.NewRegistry(cat)
//	registry.RegisterDeclared("CountTracks", func(ctx context.Context, args []any) ([]any, error) {
//	    return []any{int64(3)}, nil
//	})
//
// # Output tuples
//
// Functions with in/out parameters return their value followed by every
// argument, in/out ones holding what the host wrote. GetTrackName, for
// instance, returns (ok, track, name, size).
package hostfunc
