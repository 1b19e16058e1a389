// Package stub renders gateway stubs and classifies them against the stubs
// already on disk.
//
// Rendering is pure: the same symbol set and package name always produce the
// same text. Classification compares bodies only, ignoring the optional
// provenance header on the first line:
//
//	# Path: pkg/__init__.pyi
//
// so that a stub written by one checkout is not rewritten by another that
// would produce a different header.
package stub
