// Package server implements the file upload backend started by
// `uploadkit serve`.
//
// Routes are served by a gorilla/mux router behind request id, logging,
// recover and CORS middleware. Uploaded files go to a Store (local disk or
// a MinIO/S3 bucket). A Postgres pool is opened when a connection string is
// configured; the server starts without a database when it cannot connect.
package server
