// Package main (cmd/exampledb) inspects and edits example databases from the
// command line.
//
// Keys are given as plain strings, or as hex with --hex. Values are read from
// a file argument or from stdin.
//
// Example usage:
//
//	exampledb --db=file://./.exampledb fetch tests/test_parser.py::test_roundtrip
//	exampledb --db=file://./.exampledb save my-key ./example.bin
//	exampledb --db=file://./.exampledb copy --to='s3://AK:SK@ci-examples/shared' my-key
package main
