// Package files keeps a local catalog of the user's stored files so they
// can be listed without a connection.
//
// Records mirror what the server returned on the last listing or upload;
// the encrypted blobs themselves are never cached. SQLiteRepository works
// over a dbx.DBTX, so callers may run it inside a transaction.
//
//	repo := files.NewSQLiteRepository(db)
//	_ = repo.Upsert(ctx, f)
//	list, _ := repo.List(ctx, "docs")
package files
