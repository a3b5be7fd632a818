// Package history keeps an audit ledger of conversion runs in SQLite.
//
// Every run gets a UUID and a row in the runs table; every job outcome is
// appended to the jobs table as it arrives. The ledger is write-only from the
// scheduler's point of view and never drives retries or resumption. Write
// failures are reported to the caller, who logs them and carries on.
package history
