// Package retrieve guarantees that a named remote file is present and valid
// in the local cache directory.
//
// A Retriever downloads files by joining their name to a base URL. Downloads
// stream into a temporary file next to their final location and are renamed
// into place only after the content hash (when one is known) has been
// verified, so a partially written file is never visible under its cache
// name. Fetches of one file are serialized within the process with
// singleflight and across processes with an advisory lock file under
// <cache>/.locks.
package retrieve
