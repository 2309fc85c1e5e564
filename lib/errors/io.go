package errors

import (
	pkgerrors "github.com/pkg/errors"
)

// Iof wraps an underlying I/O error (from os, io, or bufio) with a
// message, the way a failed read or seek against a disk image's
// backing file is reported by the façade. Unlike the tag-interface
// errors above, Io errors keep errors.Is/As working against the
// wrapped cause.
func Iof(cause error, format string, a ...interface{}) error {
	return pkgerrors.Wrapf(cause, format, a...)
}
