// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

// Package errors contains helpers for creating and testing for
// certain types of errors.
package errors

import (
	"errors"
	"fmt"
)

// Copy of errors.New, so you this package can be imported instead.
func New(text string) error {
	return errors.New(text)
}

// --------------------- Out of space

// outOfSpace is an error that signals being out of space on a disk
// image.
type outOfSpace string

// OutOfSpaceI is the tag interface used to mark out of space errors.
type OutOfSpaceI interface {
	IsOutOfSpace()
}

var _ OutOfSpaceI = outOfSpace("test")

// Error returns the string message of an OutOfSpace error.
func (o outOfSpace) Error() string {
	return string(o)
}

// Tag method on our outOfSpace implementation.
func (o outOfSpace) IsOutOfSpace() {
}

// OutOfSpacef is fmt.Errorf for OutOfSpace errors.
func OutOfSpacef(format string, a ...interface{}) error {
	return outOfSpace(fmt.Sprintf(format, a...))
}

// IsOutOfSpace returns true if a given error is an OutOfSpace error.
func IsOutOfSpace(err error) bool {
	_, ok := err.(OutOfSpaceI)
	return ok
}

// --------------------- File exists

// fileExists is an error returned when a problem is caused by a file
// with the given name already existing.
type fileExists string

// FileExistsI is the tag interface used to mark FileExists errors.
type FileExistsI interface {
	IsFileExists()
}

var _ FileExistsI = fileExists("test")

// Error returns the string message of a FileExists error.
func (o fileExists) Error() string {
	return string(o)
}

// Tag method on our fileExists implementation.
func (o fileExists) IsFileExists() {
}

// FileExistsf is fmt.Errorf for FileExists errors.
func FileExistsf(format string, a ...interface{}) error {
	return fileExists(fmt.Sprintf(format, a...))
}

// IsFileExists returns true if a given error is a FileExists error.
func IsFileExists(err error) bool {
	_, ok := err.(FileExistsI)
	return ok
}

// --------------------- File not found

// fileNotFound is an error returned when a file with the given name
// cannot be found.
type fileNotFound string

// FileNotFoundI is the tag interface used to mark FileNotFound errors.
type FileNotFoundI interface {
	IsFileNotFound()
}

var _ FileNotFoundI = fileNotFound("test")

// Error returns the string message of a FileNotFound error.
func (o fileNotFound) Error() string {
	return string(o)
}

// Tag method on our fileNotFound implementation.
func (o fileNotFound) IsFileNotFound() {
}

// FileNotFoundf is fmt.Errorf for FileNotFound errors.
func FileNotFoundf(format string, a ...interface{}) error {
	return fileNotFound(fmt.Sprintf(format, a...))
}

// IsFileNotFound returns true if a given error is a FileNotFound error.
func IsFileNotFound(err error) bool {
	_, ok := err.(FileNotFoundI)
	return ok
}

// --------------------- Invalid

// invalid is an error signaling that bytes being decoded don't match
// the shape a format requires (bad magic, out-of-range field, short
// buffer).
type invalid string

// InvalidI is the tag interface used to mark Invalid errors.
type InvalidI interface {
	IsInvalid()
}

var _ InvalidI = invalid("test")

func (o invalid) Error() string {
	return string(o)
}

func (o invalid) IsInvalid() {
}

// Invalidf is fmt.Errorf for Invalid errors.
func Invalidf(format string, a ...interface{}) error {
	return invalid(fmt.Sprintf(format, a...))
}

// IsInvalid returns true if a given error is an Invalid error.
func IsInvalid(err error) bool {
	_, ok := err.(InvalidI)
	return ok
}

// --------------------- Checksum

// checksum is an error signaling that a computed checksum or CRC
// disagreed with the value stored on disk.
type checksum string

// ChecksumI is the tag interface used to mark Checksum errors.
type ChecksumI interface {
	IsChecksum()
}

var _ ChecksumI = checksum("test")

func (o checksum) Error() string {
	return string(o)
}

func (o checksum) IsChecksum() {
}

// Checksumf is fmt.Errorf for Checksum errors.
func Checksumf(format string, a ...interface{}) error {
	return checksum(fmt.Sprintf(format, a...))
}

// IsChecksum returns true if a given error is a Checksum error.
func IsChecksum(err error) bool {
	_, ok := err.(ChecksumI)
	return ok
}

// --------------------- Unimplemented

// unimplemented is an error signaling that the bytes were understood
// well enough to know what they are, but support for acting on them
// hasn't been written (e.g. fuzzy-masked STX sectors).
type unimplemented string

// UnimplementedI is the tag interface used to mark Unimplemented errors.
type UnimplementedI interface {
	IsUnimplemented()
}

var _ UnimplementedI = unimplemented("test")

func (o unimplemented) Error() string {
	return string(o)
}

func (o unimplemented) IsUnimplemented() {
}

// Unimplementedf is fmt.Errorf for Unimplemented errors.
func Unimplementedf(format string, a ...interface{}) error {
	return unimplemented(fmt.Sprintf(format, a...))
}

// IsUnimplemented returns true if a given error is an Unimplemented error.
func IsUnimplemented(err error) bool {
	_, ok := err.(UnimplementedI)
	return ok
}

// --------------------- Not found (generic)

// notFound is an error signaling that a requested entity (track,
// sector, catalog entry) could not be located, as distinct from
// FileNotFound which is specifically about host filesystem paths.
type notFound string

// NotFoundI is the tag interface used to mark NotFound errors.
type NotFoundI interface {
	IsNotFound()
}

var _ NotFoundI = notFound("test")

func (o notFound) Error() string {
	return string(o)
}

func (o notFound) IsNotFound() {
}

// NotFoundf is fmt.Errorf for NotFound errors.
func NotFoundf(format string, a ...interface{}) error {
	return notFound(fmt.Sprintf(format, a...))
}

// IsNotFound returns true if a given error is a NotFound error.
func IsNotFound(err error) bool {
	_, ok := err.(NotFoundI)
	return ok
}
