// Package mmap provides read-only memory-mapped file access.
//
// LocalStore uses it to decode snapshots and read leaf tables without
// copying file contents through kernel buffers.
//
//	m, err := mmap.Open("tree.snap")
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes() // valid until Close
//
// On platforms without mmap support the file is read into memory instead;
// the API is the same.
package mmap
