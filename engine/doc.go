// Package engine defines the pluggable recommender abstraction: the
// [Engine] interface algorithm implementations satisfy, the durable
// [Instance] description, the [Factories] registry that builds engines
// from instances, and the [Host] that tracks the live ones.
//
// # Engines and Instances
//
// An engine is code; an instance is configuration. Operators create an
// instance naming a factory and its parameters, and the server builds a
// live engine from it at creation time and again at every restart. The
// instance is what survives a crash; the engine is rebuilt from it.
//
// # Registering Factories
//
// Factories are registered by name before the server starts:
//
//	factories := engine.NewFactories()
//	factories.Register("itempop", itempop.Factory)
//
// An instance whose factory name has no registration fails to build
// with [harness.ErrUnknownFactory].
//
// # Building
//
//	inst, err := st.GetEngine(ctx, "movies")
//	if err != nil {
//	    return err
//	}
//	eng, err := factories.Build(ctx, inst, st, logger)
//	if err != nil {
//	    return err
//	}
//	host.Put(eng)
//
// The host is a capability cache over the durable instance store, the
// engine counterpart of the live job registry. Lookups for serving
// queries and feeding events go through it.
package engine
