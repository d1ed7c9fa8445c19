// Package testdb provides utilities for database integration tests.
//
// Tests obtain a connection with GetTestDBWithT, which skips the test when no
// database URL is configured, and apply the embedded schema with
// SetupTestDatabaseSchema. WithTx runs a test inside a transaction that is
// always rolled back, so tests leave no data behind.
//
// # Basic Usage
//
//	func TestSomething(t *testing.T) {
//		db := testdb.GetTestDBWithT(t)
//		testdb.SetupTestDatabaseSchema(t, db)
//
//		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//			taskStore := postgres.NewPostgresTaskStore(tx, nil)
//			// ...
//		})
//	}
//
// The database URL is read from DATABASE_URL, falling back to
// TASKDECK_TEST_DB_URL.
package testdb
