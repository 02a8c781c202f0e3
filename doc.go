// Package reabind drives a DAW host's scripting API through typed Go
// values.
//
// # Overview
//
// The host runs script calls on one thread and hands back opaque pointers.
// reabind wraps those pointers as Project, Track, Envelope, Item and Send
// values and forwards every call through a gateway: code running inside the
// host calls the function table directly, code outside sends the call over
// a channel and waits for the answer.
//
// # Basic Usage
//
//	st, _ := channel.Dial(ctx, "tcp", "127.0.0.1:2306")
//	gw, _ := gateway.New(
//	    gateway.WithChannel(st),
//	    gateway.WithCatalog(reascript.Catalog()))
//	defer gw.Close()
//
//	c := reaper.NewClient(gw)
//	p, _ := c.CurrentProject(ctx)
//	t, _ := p.AddTrack(ctx, 0, "drums")
//	last, _ := p.Tracks().At(ctx, -1)
//
// # Making a project current
//
//	restore, err := p.MakeCurrent(ctx)
//	if err != nil {
//	    return err
//	}
//	defer restore()
//
// The previous project is selected again on restore, unless it has been
// closed in the meantime.
//
// # Serving
//
// The simhost package implements the function table in memory; the
// reabind command serves it over TCP, stdio or Redis.
//
// See the [reaper], [gateway], [channel], and [script] packages for
// detailed API documentation.
package reabind
