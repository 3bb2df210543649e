// Package mongo implements store.Store on the official MongoDB driver.
// Suitable for distributed deployments requiring horizontal scaling and
// flexible schema evolution.
//
// The caller owns the client lifecycle -- mongo never disconnects it. Pass
// a database handle through the constructor:
//
//	import (
//	    mongod "go.mongodb.org/mongo-driver/v2/mongo"
//	    "go.mongodb.org/mongo-driver/v2/mongo/options"
//
//	    "github.com/jeethualex/harness/store/mongo"
//	)
//
//	client, _ := mongod.Connect(options.Client().ApplyURI(uri))
//	store := mongo.New(client.Database("harness"))
//	store.Migrate(ctx)
package mongo
